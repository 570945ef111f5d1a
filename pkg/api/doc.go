/*
Package api is the JSON over HTTP client for the access proxy console API.

Every request carries Accept: application/json, the Csrf-Token header once
LoadCsrf has run, and the console session cookie. Responses are sorted into
three outcomes:

	┌──────────── response ────────────┐
	│                                   │
	│  2xx  ──▶ decoded into out        │
	│  401  ──▶ ErrAuthRequired         │
	│  else ──▶ *StatusError            │
	│           (error_msg from body)   │
	└───────────────────────────────────┘

A 401 is never reported as a StatusError; callers check it first with
IsAuthRequired and send the user back to sign in.

# Collections

List handles both collection shapes the server uses. Unpaginated resources
answer with a bare array, paginated ones with an object:

	GET /node                      → [{"id": ...}, ...]
	GET /check?page=1&page_count=20 → {"checks": [...], "count": 41}

The count of a bare array is its length.

# Usage

	client, err := api.New(api.Config{
		BaseURL: "https://zero.example.com",
		Session: os.Getenv("ZEROCON_SESSION"),
	})
	if err != nil {
		return err
	}
	if _, err := client.LoadCsrf(ctx); err != nil {
		return err
	}

	page, err := api.List[types.Check](ctx, client, "/check", "checks", query)

Request counts and durations are exported through pkg/metrics.
*/
package api
