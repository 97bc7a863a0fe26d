package registry

import (
	"regexp"
	"strings"
)

// Substrings that mark a free-text provider attribution as an
// organization rather than a person.
var organizationKeywords = []string{
	" hospital",
	" clinic",
	" health",
	" medical",
	" center",
	" centre",
	" physicians",
	" associates",
	" services",
	" department",
	" university",
	" institute",
	" group",
	" surgery",
	" of ",
}

var organizationTokens = map[string]bool{
	"of": true, "for": true, "and": true, "medical": true, "health": true,
	"hospital": true, "clinic": true, "physicians": true, "associates": true,
	"services": true, "group": true, "institute": true, "university": true,
}

var (
	credentialPattern   = regexp.MustCompile(`^[A-Z]{2,}(?:[./][A-Z]{2,})*$`)
	credentialSuffix    = regexp.MustCompile(`^(.*?)([A-Z]{2,})$`)
	nonCredentialRunes  = regexp.MustCompile(`[^A-Za-z./]`)
	camelCaseComponents = regexp.MustCompile(`[A-Z][^A-Z]*`)
)

// NormalizeSpaces lowercases a name and strips all whitespace, yielding
// the raw form of a registry key.
func NormalizeSpaces(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), ""))
}

// ParsePersonName splits a free-text provider attribution into given name,
// family name, and credentials. Credentials appear either after a comma
// ("Jane Smith, MD") or as trailing all-caps tokens ("Jane Smith MD"); a
// single CamelCase token ("JaneSmith") splits on its case boundaries.
func ParsePersonName(raw string) (given, family, credentials string) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", "", ""
	}

	var parts []string
	for _, part := range strings.Split(name, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	namePart := name
	commaCredentials := ""
	if len(parts) > 0 {
		namePart = parts[0]
		if len(parts) > 1 {
			commaCredentials = strings.Join(parts[1:], " ")
		}
	}

	tokens := strings.Fields(namePart)
	if len(tokens) == 0 {
		return "", "", commaCredentials
	}

	var credentialTokens []string
	for len(tokens) > 0 {
		token := tokens[len(tokens)-1]
		cleaned := nonCredentialRunes.ReplaceAllString(token, "")
		stripped := strings.ReplaceAll(cleaned, ".", "")
		if credentialPattern.MatchString(stripped) {
			credentialTokens = append([]string{stripped}, credentialTokens...)
			tokens = tokens[:len(tokens)-1]
			continue
		}
		if match := credentialSuffix.FindStringSubmatch(stripped); match != nil && len(tokens) == 1 {
			suffix := match[2]
			base := token[:len(token)-len(suffix)]
			if base != "" {
				tokens[len(tokens)-1] = base
			} else {
				tokens = tokens[:len(tokens)-1]
			}
			credentialTokens = append([]string{suffix}, credentialTokens...)
			continue
		}
		break
	}

	if len(tokens) == 1 {
		if camel := camelCaseComponents.FindAllString(tokens[0], -1); len(camel) >= 2 {
			tokens = []string{strings.Join(camel[:len(camel)-1], " "), camel[len(camel)-1]}
		}
	}

	switch len(tokens) {
	case 0:
	case 1:
		family = tokens[0]
	default:
		family = tokens[len(tokens)-1]
		given = strings.Join(tokens[:len(tokens)-1], " ")
	}

	var credentialParts []string
	if commaCredentials != "" {
		credentialParts = append(credentialParts, commaCredentials)
	}
	if len(credentialTokens) > 0 {
		credentialParts = append(credentialParts, strings.Join(credentialTokens, " "))
	}
	credentials = strings.TrimSpace(strings.Join(credentialParts, " "))

	return given, family, credentials
}

// PersonKey derives the dedup key for a person provider from the parsed
// name components, falling back to the raw attribution.
func PersonKey(given, family, fallback string) string {
	base := strings.ToLower(strings.Join(strings.Fields(given+family), ""))
	if base != "" {
		return base
	}
	return NormalizeSpaces(fallback)
}

// OrganizationKey derives the dedup key for an organization provider.
func OrganizationKey(name string) string {
	return NormalizeSpaces(name)
}

// LooksLikeOrganization reports whether a free-text attribution names an
// organization. The heuristic lives here alone so callers never reimplement
// the keyword set.
func LooksLikeOrganization(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}
	for _, keyword := range organizationKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	tokens := strings.Fields(lower)
	if len(tokens) >= 3 {
		for _, token := range tokens {
			if organizationTokens[token] {
				return true
			}
		}
	}
	return false
}
