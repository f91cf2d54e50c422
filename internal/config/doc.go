// Package config handles configuration loading for railsdevs-conversations.
//
// # Configuration File
//
// The file is YAML unless its name ends in .toml. Default location:
//
//  1. Path from RAILSDEVS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/railsdevs/conversations.yaml (~/.config when unset)
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  path: "${RAILSDEVS_DATA}/conversations.db"
//
// Unset variables expand to the empty string.
//
// # Environment Overrides
//
// After the file is read, non-empty RAILSDEVS_* variables replace the file's
// values:
//
//	RAILSDEVS_HTTP_ADDR
//	RAILSDEVS_DATABASE_PATH
//	RAILSDEVS_HIRING_FEE_GRACE_PERIOD
//	RAILSDEVS_INBOUND_DOMAIN
//	RAILSDEVS_INBOUND_DEDUPE_TTL
//	RAILSDEVS_INBOUND_DEDUPE_SIZE
//	RAILSDEVS_LOG_LEVEL
//	RAILSDEVS_LOG_FORMAT
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:8080"   # API, event stream and inbound webhook
//
//	database:
//	  path: "/var/lib/railsdevs/conversations.db"   # required, ":memory:" allowed
//
//	hiring_fee:
//	  grace_period: "336h"   # conversations younger than this owe no fee
//
//	inbound:
//	  domain: "reply.railsdevs.com"   # empty disables email routing
//	  dedupe_ttl: "24h"
//	  dedupe_size: 10000
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Durations use time.ParseDuration syntax.
package config
