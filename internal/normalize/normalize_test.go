package normalize

import (
	"testing"
)

func TestLinkedInURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Full https URL", "https://www.linkedin.com/in/ada-lovelace/", "linkedin.com/in/ada-lovelace"},
		{"Bare host", "linkedin.com/in/ada-lovelace", "linkedin.com/in/ada-lovelace"},
		{"Uppercase", "HTTPS://WWW.LINKEDIN.COM/IN/Ada-Lovelace", "linkedin.com/in/ada-lovelace"},
		{"Query string dropped", "https://linkedin.com/in/ada?originalSubdomain=uk", "linkedin.com/in/ada"},
		{"Path tail dropped", "linkedin.com/in/ada/details/experience/", "linkedin.com/in/ada"},
		{"Encoded non-ASCII", "https://www.linkedin.com/in/%c3%a1lvaro", "linkedin.com/in/álvaro"},
		{"Unencoded twin", "https://www.linkedin.com/in/álvaro", "linkedin.com/in/álvaro"},
		{"Company URL rejected", "https://www.linkedin.com/company/acme", ""},
		{"No slug", "https://www.linkedin.com/in/", ""},
		{"Empty", "", ""},
		{"Not linkedin", "https://example.com/in/ada", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinkedInURL(tt.input); got != tt.expected {
				t.Errorf("LinkedInURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLinkedInURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://www.linkedin.com/in/ada-lovelace/",
		"linkedin.com/in/%c3%a1lvaro",
		"LINKEDIN.COM/IN/Satoshi?trk=feed",
	}
	for _, in := range inputs {
		once := LinkedInURL(in)
		twice := LinkedInURL(once)
		if once != twice {
			t.Errorf("not idempotent: LinkedInURL(%q) = %q, re-applied = %q", in, once, twice)
		}
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{" Ada@AE.com ", "ada@ae.com"},
		{"ada@ae.com", "ada@ae.com"},
		{"no-at-sign", ""},
		{"trailing@", ""},
		{"@leading.com", ""},
		{"nodot@domain", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Email(tt.input); got != tt.expected {
			t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCompanyName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Strips Inc", "Acme Inc", "acme"},
		{"Strips Labs", "Uniswap Labs", "uniswap"},
		{"Strips stacked suffixes", "Acme Labs Inc.", "acme"},
		{"Punctuation removed", "O'Neil & Sons, Ltd", "oneil sons"},
		{"Whitespace collapsed", "  Widget   Co ", "widget co"},
		{"Plain name untouched", "Analytical Engines", "analytical engines"},
		{"Suffix mid-name kept", "Protocol Kitchen", "protocol kitchen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompanyName(tt.input); got != tt.expected {
				t.Errorf("CompanyName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCompanyNameAlnum(t *testing.T) {
	if got := CompanyNameAlnum("Uniswap Labs, Inc."); got != "uniswaplabsinc" {
		t.Errorf("CompanyNameAlnum = %q, want %q", got, "uniswaplabsinc")
	}
}

func TestGitHubUsername(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://github.com/0age", "0age"},
		{"github.com/0age/repo", "0age"},
		{"https://www.github.com/Uniswap", "uniswap"},
		{"https://github.com/explore", ""},
		{"https://github.com/orgs/acme", ""},
		{"https://gitlab.com/0age", ""},
		{"github.com/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := GitHubUsername(tt.input); got != tt.expected {
			t.Errorf("GitHubUsername(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGitHubSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0age", "0age"},
		{"BobDev", "bobdev"},
		{"https://github.com/0age", "0age"},
		{"see github.com/Uniswap for the code", "uniswap"},
		{"explore", ""},
		{"N/A", ""},
		{"not a username", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := GitHubSlug(tt.input); got != tt.expected {
			t.Errorf("GitHubSlug(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGitHubOrg(t *testing.T) {
	longBlob := "The team has a github presence at github.com/acme but also maintains " +
		"several other properties across the internet including a very long description " +
		"that goes on and on about their mission and values and their fundraising history " +
		"which pushes this string well past the two hundred character rejection threshold."

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain org URL", "https://github.com/uniswap", "uniswap"},
		{"Embedded in text", "Portfolio: github.com/acme-corp", "acme-corp"},
		{"Prose rejected", "No official organization found", ""},
		{"Long blob rejected", longBlob, ""},
		{"Sentinel rejected", "github.com/settings", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GitHubOrg(tt.input); got != tt.expected {
				t.Errorf("GitHubOrg(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"Identical", "Ada Lovelace", "Ada Lovelace", 1.0, 1.0},
		{"Case and spacing ignored", "ada lovelace", "AdaLovelace", 1.0, 1.0},
		{"Similar names", "Jon Smith", "John Smith", 0.8, 1.0},
		{"Different names", "Ada Lovelace", "Satoshi Nakamoto", 0.0, 0.6},
		{"Empty", "", "Ada", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameSimilarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("NameSimilarity(%q, %q) = %.3f, want range [%.2f, %.2f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestValidCompanyName(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Analytical Engines", true},
		{"Labs", false},
		{"Inc.", false},
		{"ab", false},
		{"", false},
		{"  ", false},
		{"Uniswap Labs", true},
		{"Self-employed", false},
		{"Freelance", false},
		{"Stealth Startup", false},
	}

	for _, tt := range tests {
		if got := ValidCompanyName(tt.input); got != tt.expected {
			t.Errorf("ValidCompanyName(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
