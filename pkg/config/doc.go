/*
Package config loads the zerocon client configuration.

The file lives at ~/.config/zerocon/config.yaml unless --config names another
one. A path ending in .toml is read as TOML. A missing file is not an error:
the defaults below apply, and ZEROCON_SERVER and ZEROCON_SESSION still
override the server and session cookie.

	server: https://zero.example.com
	session_cookie: <value of the pritunl-zero-console cookie>
	request_timeout: 30s
	reconnect_delay: 500ms
	debounce: 300ms
	filter_reset: key        # or query
	filter_reset_key: name
	page_counts:
	  check: 20
	  alert: 20
	  log: 50
	  audit: 50
	log_level: info
	metrics_addr: 127.0.0.1:9301
	state_file: ~/.local/state/zerocon/view.db

Command line flags are applied by the caller after Load.
*/
package config
