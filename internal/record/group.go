package record

import "qareview/store"

const DefaultPageSize = 10

// DomainGroup is one tab of the review view.
type DomainGroup struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Domains returns the distinct domains in first-seen order.
func Domains(records []store.Record) []string {
	seen := make(map[string]bool)
	var domains []string
	for _, r := range records {
		if !seen[r.Domain] {
			seen[r.Domain] = true
			domains = append(domains, r.Domain)
		}
	}
	return domains
}

// Filter returns the records of one domain, in working-set order.
func Filter(records []store.Record, domain string) []store.Record {
	var out []store.Record
	for _, r := range records {
		if r.Domain == domain {
			out = append(out, r)
		}
	}
	return out
}

func Count(records []store.Record, domain string) int {
	n := 0
	for _, r := range records {
		if r.Domain == domain {
			n++
		}
	}
	return n
}

// Partition returns every domain with its record count.
func Partition(records []store.Record) []DomainGroup {
	domains := Domains(records)
	groups := make([]DomainGroup, 0, len(domains))
	for _, d := range domains {
		groups = append(groups, DomainGroup{Domain: d, Count: Count(records, d)})
	}
	return groups
}

type Page struct {
	Items    []store.Record `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// Paginate slices records into 1-based pages. Non-positive arguments fall back
// to page 1 and DefaultPageSize. A page past the end has no items.
func Paginate(records []store.Record, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	p := Page{Items: []store.Record{}, Total: len(records), Page: page, PageSize: pageSize}
	start := (page - 1) * pageSize
	if start >= len(records) {
		return p
	}
	end := min(start+pageSize, len(records))
	p.Items = records[start:end]
	return p
}
