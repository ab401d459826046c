package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// headerAliases maps accepted column headings to Row fields. Matching is
// case-insensitive after trimming. "Twiiter / X" is a known typo in
// shipped exports and must keep working.
var headerAliases = map[string]string{
	"full name":    "full_name",
	"first name":   "first_name",
	"last name":    "last_name",
	"linkedin url": "linkedin_url",
	"linkedin":     "linkedin_url",
	"github url":   "github_url",
	"github":       "github_url",
	"company":      "company",
	"job title":    "job_title",
	"title":        "job_title",
	"location":     "location",
	"emails":       "emails",
	"primary email": "primary_email",
	"all emails":    "all_emails",
	"school":        "school",
	"website/blog":  "website",
	"website":       "website",
	"twitter/x":     "twitter",
	"twitter / x":   "twitter",
	"twiiter / x":   "twitter",
	"twitter":       "twitter",
}

// ReadRows parses a CSV stream into Rows. The first record is the header;
// unknown columns are ignored, missing columns read as empty.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	fieldFor := make(map[int]string)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if field, ok := headerAliases[key]; ok {
			fieldFor[i] = field
		}
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read csv record: %w", err)
		}

		var row Row
		for i, cell := range record {
			switch fieldFor[i] {
			case "full_name":
				row.FullName = cell
			case "first_name":
				row.FirstName = cell
			case "last_name":
				row.LastName = cell
			case "linkedin_url":
				row.LinkedInURL = cell
			case "github_url":
				row.GithubURL = cell
			case "company":
				row.Company = cell
			case "job_title":
				row.JobTitle = cell
			case "location":
				row.Location = cell
			case "emails":
				row.Emails = cell
			case "primary_email":
				row.PrimaryEmail = cell
			case "all_emails":
				row.AllEmails = cell
			case "school":
				row.School = cell
			case "website":
				row.Website = cell
			case "twitter":
				row.Twitter = cell
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
