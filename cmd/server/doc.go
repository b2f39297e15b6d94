// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

// Command server runs the Vitrine backend: the management API, the device
// manifest endpoint, and the asynchronous audit pipeline.
//
// Configuration is layered (env > config file > defaults); see the config
// package for the full set of variables. Typical startup:
//
//	VITRINE_CONFIG=/etc/vitrine/config.yaml JWT_SECRET=... server
package main
