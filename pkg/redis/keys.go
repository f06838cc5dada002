package redis

import "strings"

// Every key lives under the "cb" namespace.
const keyNamespace = "cb"

// RateLimitKey names the counter of an auth rate-limit scope.
func RateLimitKey(scope string) string {
	return buildKey("rate_limit", scope)
}

// AccessSessionKey names the marker of one issued access token.
func AccessSessionKey(accessID string) string {
	return buildKey("session", "access", accessID)
}

// UserSessionsKey names the set holding every access id of a user.
func UserSessionsKey(userID string) string {
	return buildKey("session", "user", userID)
}

// AccessSessionKey and UserSessionsKey are also exposed as methods so the
// session manager can depend on an interface.
func (c *Client) AccessSessionKey(accessID string) string { return AccessSessionKey(accessID) }

func (c *Client) UserSessionsKey(userID string) string { return UserSessionsKey(userID) }

func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
