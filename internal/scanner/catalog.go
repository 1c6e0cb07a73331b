package scanner

import "regexp"

// Severity classifies how damaging a leaked match of a rule would be.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// PatternRule defines one detection rule from the catalog.
type PatternRule struct {
	ID          string
	Category    string
	Severity    Severity
	Description string
	Pattern     *regexp.Regexp

	// ValueGroup, when non-zero, is the capture group holding the secret
	// value. Rules that anchor on surrounding key text use it so redaction
	// replaces only the value, leaving the key readable in the file.
	ValueGroup int

	// Validate, when set, filters raw regex hits that the surrounding
	// context shows to be non-secrets (e.g. bare base64 that is not a key).
	Validate func(line, match string) bool
}

// Catalog returns a copy of the built-in detection rules. The catalog is
// reviewed at authoring time and exempt from the custom-pattern validator.
func Catalog() []PatternRule {
	rules := make([]PatternRule, len(catalog))
	copy(rules, catalog)
	return rules
}

// CatalogByCategory returns the built-in rules limited to the given
// categories. An empty filter returns the whole catalog.
func CatalogByCategory(categories ...string) []PatternRule {
	if len(categories) == 0 {
		return Catalog()
	}
	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	var rules []PatternRule
	for _, r := range catalog {
		if wanted[r.Category] {
			rules = append(rules, r)
		}
	}
	return rules
}

var catalog = []PatternRule{
	// AWS
	{
		ID:          "aws_access_key",
		Category:    "aws",
		Severity:    SeverityCritical,
		Description: "AWS Access Key ID",
		Pattern:     regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	},
	{
		ID:          "aws_secret_key",
		Category:    "aws",
		Severity:    SeverityCritical,
		Description: "AWS Secret Access Key",
		Pattern:     regexp.MustCompile(`(?i)aws[_\-]?secret[_\-]?(access[_\-]?)?key['"]?\s*[:=]\s*['"]?([0-9a-zA-Z/+]{40})`),
		ValueGroup:  2,
	},
	// GitHub token family
	{
		ID:          "github_token",
		Category:    "github",
		Severity:    SeverityCritical,
		Description: "GitHub Personal Access Token",
		Pattern:     regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}`),
	},
	{
		ID:          "github_fine_grained",
		Category:    "github",
		Severity:    SeverityCritical,
		Description: "GitHub Fine-Grained Token",
		Pattern:     regexp.MustCompile(`github_pat_[a-zA-Z0-9]{22}_[a-zA-Z0-9]{59}`),
	},
	// Google
	{
		ID:          "google_api_key",
		Category:    "google",
		Severity:    SeverityHigh,
		Description: "Google API Key",
		Pattern:     regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
	},
	// OpenAI / Anthropic
	{
		ID:          "openai_api_key",
		Category:    "api_key",
		Severity:    SeverityCritical,
		Description: "OpenAI API Key",
		Pattern:     regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}T3BlbkFJ[a-zA-Z0-9]{20,}`),
	},
	{
		ID:          "anthropic_api_key",
		Category:    "api_key",
		Severity:    SeverityCritical,
		Description: "Anthropic API Key",
		Pattern:     regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{32,}`),
	},
	// Slack
	{
		ID:          "slack_token",
		Category:    "slack",
		Severity:    SeverityHigh,
		Description: "Slack Token",
		Pattern:     regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),
	},
	{
		ID:          "slack_webhook",
		Category:    "slack",
		Severity:    SeverityMedium,
		Description: "Slack Webhook URL",
		Pattern:     regexp.MustCompile(`https://hooks\.slack\.com/services/T[a-zA-Z0-9_]{8}/B[a-zA-Z0-9_]{8,}/[a-zA-Z0-9_]{24}`),
	},
	// Stripe
	{
		ID:          "stripe_secret_key",
		Category:    "stripe",
		Severity:    SeverityCritical,
		Description: "Stripe Secret Key",
		Pattern:     regexp.MustCompile(`sk_(live|test)_[0-9a-zA-Z]{24,}`),
	},
	// Private keys
	{
		ID:          "private_key_header",
		Category:    "private_key",
		Severity:    SeverityCritical,
		Description: "Private Key Block",
		Pattern:     regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|DSA\s+|OPENSSH\s+|PGP\s+)?PRIVATE\s+KEY( BLOCK)?-----`),
	},
	// Generic credentials
	{
		ID:          "bearer_token",
		Category:    "token",
		Severity:    SeverityHigh,
		Description: "Bearer Token",
		Pattern:     regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-_\.]{20,}`),
	},
	{
		ID:          "basic_auth",
		Category:    "credentials",
		Severity:    SeverityHigh,
		Description: "Basic Auth Credentials",
		Pattern:     regexp.MustCompile(`Basic\s+[a-zA-Z0-9+/=]{20,}`),
	},
	{
		ID:          "password_assignment",
		Category:    "password",
		Severity:    SeverityMedium,
		Description: "Password Assignment",
		Pattern:     regexp.MustCompile(`(?i)(password|passwd|pwd|secret|token|api[_-]?key)\s*[:=]\s*['"]?([a-zA-Z0-9!@#$%^&*()_+\-=\[\]{};:\\|,.<>\/?]{8,})['"]?`),
		ValueGroup:  2,
		Validate: func(line, match string) bool {
			// Assignments of placeholder tokens are already redacted.
			return !placeholderToken.MatchString(match)
		},
	},
	{
		ID:          "url_credentials",
		Category:    "credentials",
		Severity:    SeverityHigh,
		Description: "Credentials Embedded in URL",
		Pattern:     regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^:/\s]+:[^@/\s]+@[^\s]+`),
	},
	// Database connection strings
	{
		ID:          "postgres_uri",
		Category:    "connection_string",
		Severity:    SeverityCritical,
		Description: "PostgreSQL Connection String",
		Pattern:     regexp.MustCompile(`postgres(?:ql)?://[^:\s]+:[^@\s]+@[^/\s]+/[^\s]+`),
	},
	{
		ID:          "mysql_uri",
		Category:    "connection_string",
		Severity:    SeverityCritical,
		Description: "MySQL Connection String",
		Pattern:     regexp.MustCompile(`mysql://[^:\s]+:[^@\s]+@[^/\s]+/[^\s]+`),
	},
	{
		ID:          "mongodb_uri",
		Category:    "connection_string",
		Severity:    SeverityCritical,
		Description: "MongoDB Connection String",
		Pattern:     regexp.MustCompile(`mongodb(\+srv)?://[^:\s]+:[^@\s]+@[^\s]+`),
	},
	{
		ID:          "redis_uri",
		Category:    "connection_string",
		Severity:    SeverityHigh,
		Description: "Redis Connection String",
		Pattern:     regexp.MustCompile(`redis://[^:\s]*:[^@\s]+@[^\s]+`),
	},
}

var placeholderToken = regexp.MustCompile(`\$\{[A-Z][A-Z0-9_]*\}`)
