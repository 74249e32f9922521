package recovery

import (
	"regexp"
)

// Category labels the recognized failure classes
type Category string

const (
	CategoryConnection   Category = "connection"
	CategoryAuth         Category = "auth"
	CategoryRateLimit    Category = "rate_limit"
	CategoryValidation   Category = "validation"
	CategoryModelFailure Category = "model_failure"
	CategoryGeneric      Category = "generic"
)

// Descriptor tells the caller how to present and handle a failure
type Descriptor struct {
	Category    Category
	UserMessage string
	Code        string
	Retryable   bool
	Suggestions []string
	MaxRetries  int
}

type errorPattern struct {
	pattern    *regexp.Regexp
	descriptor Descriptor
}

// errorPatterns is matched top to bottom against the error text; the
// first match wins. The final `.*` entry guarantees every error maps
// to a descriptor.
var errorPatterns = []errorPattern{
	{
		pattern: regexp.MustCompile(`(?i)(connection refused|connection reset|timeout|deadline exceeded|no such host|broken pipe|EOF)`),
		descriptor: Descriptor{
			Category:    CategoryConnection,
			UserMessage: "I'm having trouble reaching a service right now. Please try again.",
			Code:        "CONNECTION_ERROR",
			Retryable:   true,
			Suggestions: []string{"Try again in a moment"},
			MaxRetries:  2,
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(unauthorized|forbidden|invalid (api )?key|permission denied|401|403)`),
		descriptor: Descriptor{
			Category:    CategoryAuth,
			UserMessage: "I don't have permission to do that with your current access.",
			Code:        "AUTH_ERROR",
			Retryable:   false,
			Suggestions: []string{"Check with your workspace admin"},
			MaxRetries:  0,
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(rate limit|too many requests|quota exceeded|429)`),
		descriptor: Descriptor{
			Category:    CategoryRateLimit,
			UserMessage: "You're sending requests faster than I can handle. Give it a minute and try again.",
			Code:        "RATE_LIMITED",
			Retryable:   true,
			Suggestions: []string{"Wait a minute before retrying"},
			MaxRetries:  1,
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(validation|invalid input|malformed|bad request|missing required)`),
		descriptor: Descriptor{
			Category:    CategoryValidation,
			UserMessage: "Something about that request didn't look right. Could you rephrase it?",
			Code:        "VALIDATION_ERROR",
			Retryable:   false,
			Suggestions: []string{"Rephrase your request", "Include a full record name"},
			MaxRetries:  0,
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(model|completion|generation failed|no JSON|unmarshal|parse)`),
		descriptor: Descriptor{
			Category:    CategoryModelFailure,
			UserMessage: "I had trouble understanding that one. Could you say it differently?",
			Code:        "MODEL_FAILURE",
			Retryable:   true,
			Suggestions: []string{"Rephrase your request"},
			MaxRetries:  2,
		},
	},
	{
		pattern: regexp.MustCompile(`.*`),
		descriptor: Descriptor{
			Category:    CategoryGeneric,
			UserMessage: "Something went wrong on my end. Please try again.",
			Code:        "INTERNAL_ERROR",
			Retryable:   true,
			Suggestions: []string{"Try again", "Rephrase your request"},
			MaxRetries:  1,
		},
	},
}

// Classify maps an error to its recovery descriptor
func Classify(err error) Descriptor {
	if err == nil {
		return errorPatterns[len(errorPatterns)-1].descriptor
	}
	text := err.Error()
	for _, entry := range errorPatterns {
		if entry.pattern.MatchString(text) {
			return entry.descriptor
		}
	}
	// Unreachable: the catch-all always matches
	return errorPatterns[len(errorPatterns)-1].descriptor
}

// RetryCounter tracks attempts within one request. Not safe for
// concurrent use; create one per request.
type RetryCounter struct {
	attempts int
}

// Allow reports whether another retry fits the descriptor's budget and
// consumes one attempt when it does. Non-retryable descriptors never
// allow.
func (c *RetryCounter) Allow(d Descriptor) bool {
	if !d.Retryable || c.attempts >= d.MaxRetries {
		return false
	}
	c.attempts++
	return true
}

// Attempts reports consumed retries
func (c *RetryCounter) Attempts() int {
	return c.attempts
}

// RetryLimitResponse is returned once a request exhausts its budget
func RetryLimitResponse() *Response {
	return &Response{
		Message:     "I've retried a few times without luck. Let's try something else.",
		Code:        "RETRY_LIMIT_EXCEEDED",
		Suggestions: []string{"Rephrase your request", "Try again later"},
	}
}
