package examples

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Domain buckets the example corpora
type Domain string

const (
	DomainChart    Domain = "chart"
	DomainAnalysis Domain = "analysis"
	DomainCRM      Domain = "crm"
	DomainGeneral  Domain = "general"
)

// InteractionExample is one past (query → successful outcome) pair.
// Only positive examples are recorded; there is no decay and no
// negative feedback. The corpus biases prompts, it never gates
// decisions.
type InteractionExample struct {
	Query     string            `json:"query"`
	Intent    string            `json:"intent"`
	Entities  map[string]string `json:"entities,omitempty"`
	Success   bool              `json:"success"`
	Timestamp time.Time         `json:"timestamp"`
	Context   string            `json:"context,omitempty"`
}

// domainKeywords is the fixed retrieval vocabulary per domain
var domainKeywords = map[Domain][]string{
	DomainChart:    {"chart", "graph", "plot", "pie", "bar", "line", "visualize", "visualization", "axis", "dashboard"},
	DomainAnalysis: {"analyze", "analysis", "trend", "compare", "insight", "summary", "summarize", "report", "average", "total", "count"},
	DomainCRM:      {"contact", "contacts", "account", "accounts", "deal", "deals", "activity", "email", "phone", "company", "update", "create", "delete"},
	DomainGeneral:  {"help", "hello", "thanks", "what", "how", "why", "can", "you"},
}

const maxRetrieved = 2

// Store holds bounded append-only example lists per domain
type Store struct {
	mu      sync.Mutex
	domains map[Domain][]InteractionExample
	cap     int
}

func NewStore(capPerDomain int) *Store {
	if capPerDomain <= 0 {
		capPerDomain = 100
	}
	return &Store{
		domains: make(map[Domain][]InteractionExample),
		cap:     capPerDomain,
	}
}

// Record appends an example to its domain corpus, dropping the oldest
// entry once the cap is reached
func (s *Store) Record(domain Domain, ex InteractionExample) {
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.domains[domain]
	if len(list) >= s.cap {
		list = list[1:]
	}
	s.domains[domain] = append(list, ex)
}

// Retrieve returns up to 2 examples sharing at least one domain
// keyword with the query, ranked by keyword-overlap count with
// recency breaking ties.
func (s *Store) Retrieve(query string, domain Domain) []InteractionExample {
	queryKeywords := matchKeywords(query, domainKeywords[domain])
	if len(queryKeywords) == 0 {
		return nil
	}

	s.mu.Lock()
	list := make([]InteractionExample, len(s.domains[domain]))
	copy(list, s.domains[domain])
	s.mu.Unlock()

	type scored struct {
		example InteractionExample
		overlap int
	}
	candidates := make([]scored, 0)
	for _, ex := range list {
		overlap := 0
		lowered := strings.ToLower(ex.Query)
		for _, kw := range queryKeywords {
			if strings.Contains(lowered, kw) {
				overlap++
			}
		}
		if overlap > 0 {
			candidates = append(candidates, scored{example: ex, overlap: overlap})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		return candidates[i].example.Timestamp.After(candidates[j].example.Timestamp)
	})

	n := maxRetrieved
	if len(candidates) < n {
		n = len(candidates)
	}
	result := make([]InteractionExample, n)
	for i := 0; i < n; i++ {
		result[i] = candidates[i].example
	}
	return result
}

// Len reports the current corpus size for a domain
func (s *Store) Len(domain Domain) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.domains[domain])
}

// DomainForAction maps an intent action to the corpus it belongs in
func DomainForAction(action string) Domain {
	switch {
	case strings.Contains(action, "chart"):
		return DomainChart
	case strings.Contains(action, "analyze") || strings.Contains(action, "analysis"):
		return DomainAnalysis
	case strings.Contains(action, "contact") || strings.Contains(action, "account") ||
		strings.Contains(action, "deal") || strings.Contains(action, "activity") ||
		strings.Contains(action, "data"):
		return DomainCRM
	default:
		return DomainGeneral
	}
}

// matchKeywords returns the domain keywords present in the query
func matchKeywords(query string, keywords []string) []string {
	lowered := strings.ToLower(query)
	matched := make([]string, 0)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}
