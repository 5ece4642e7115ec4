// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"net/http"

	"github.com/pdiddy/jobstream/pkg/types"
)

// NewPlatforms builds the enabled platforms, all sharing client. Adzuna is
// skipped when its credentials are missing.
func NewPlatforms(cfg types.PlatformsConfig, client *http.Client) []Platform {
	var ps []Platform
	if cfg.EnableAdzuna && cfg.AdzunaAppID != "" && cfg.AdzunaAppKey != "" {
		ps = append(ps, &AdzunaPlatform{
			Client:  client,
			AppID:   cfg.AdzunaAppID,
			AppKey:  cfg.AdzunaAppKey,
			Country: cfg.AdzunaCountry,
		})
	}
	if cfg.EnableRemotive {
		ps = append(ps, &RemotivePlatform{Client: client})
	}
	if cfg.EnableArbeitnow {
		ps = append(ps, &ArbeitnowPlatform{Client: client})
	}
	if cfg.EnableWeWorkRemotely {
		ps = append(ps, &WeWorkRemotelyPlatform{Client: client})
	}
	return ps
}
