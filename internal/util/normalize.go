package util

import (
	"net/mail"
	"strings"
)

// NormalizeAddress extracts and normalizes an email address from a raw value
// such as a From header or a CSV cell.
// - Parses RFC 5322 values like "Name <user+alias@Example.COM>"
// - Lowercases
// - Strips +alias in local part: user+news@x.com -> user@x.com
// Returns empty string if parsing fails or the address is missing.
func NormalizeAddress(raw string) string {
	if raw == "" {
		return ""
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr == nil {
		// The value may be a list; try a crude fallback by splitting on comma.
		parts := strings.Split(raw, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			a, e := mail.ParseAddress(p)
			if e == nil && a != nil {
				addr = a
				break
			}
		}
		if addr == nil {
			return ""
		}
	}

	email := strings.ToLower(strings.TrimSpace(addr.Address))
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return email
	}
	local := email[:at]
	domain := email[at+1:]

	// Strip +alias in local part. Dots stay as-is: only some providers
	// ignore them and removing them would over-merge across providers.
	if plus := strings.IndexByte(local, '+'); plus > -1 {
		local = local[:plus]
	}

	return local + "@" + domain
}

// DisplayName derives a short human name from a From-style header value,
// e.g. "Acme Sales <sales@acme.com>" -> "Acme Sales". Falls back to a
// prettified local part, then the address itself.
func DisplayName(fromHeader string) string {
	if idx := strings.Index(fromHeader, "<"); idx > 0 {
		name := strings.TrimSpace(fromHeader[:idx])
		name = strings.Trim(name, `"'`)
		if name != "" {
			return name
		}
	}
	normalized := NormalizeAddress(fromHeader)
	if at := strings.IndexByte(normalized, '@'); at > 0 {
		lp := normalized[:at]
		parts := strings.Split(lp, ".")
		for i := range parts {
			if parts[i] == "" {
				continue
			}
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
		return strings.Join(parts, " ")
	}
	return normalized
}
