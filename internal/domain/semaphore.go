package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	RuleExpired           = "documento.vencido"
	RuleIssueTooOld       = "documento.emision_mayor_30_dias"
	RuleNumberMismatch    = "documento.numero_no_coincide"
	RuleTextMissing       = "documento.texto_insuficiente"
	RuleNumberNotFound    = "documento.numero_no_encontrado"
	maxIssueAgeDays       = 30
	minReadableTextLength = 10
)

var (
	bareNumberPattern     = regexp.MustCompile(`\b\d{7,10}\b`)
	prefixedNumberPattern = regexp.MustCompile(`(?i)(?:DNI|Documento|DOC|Pasaporte|PAS|CC|C[ée]dula)[\s:.#]*(\d{7,10})`)
	numberSeparators      = regexp.MustCompile(`[\s\-.]`)
)

type SemaphoreInput struct {
	ExpiryDate         *Date
	IssueDate          *Date
	ExtractedText      string
	UserDocumentNumber string
}

type SemaphoreResult struct {
	Semaphore   Semaphore `json:"estado"`
	FailedRules []string  `json:"semaforo_motivos"`
}

// EvaluateSemaphore applies the validity rules in priority order: any red rule wins,
// then yellow, otherwise green. FailedRules holds the rule that decided the colour.
func EvaluateSemaphore(in SemaphoreInput, now time.Time) SemaphoreResult {
	today := DateOf(now)
	oldestIssue := DateOf(now.AddDate(0, 0, -maxIssueAgeDays))

	if in.ExpiryDate != nil && in.ExpiryDate.Before(today) {
		return red(RuleExpired)
	}
	if in.IssueDate != nil && in.IssueDate.Before(oldestIssue) {
		return red(RuleIssueTooOld)
	}

	text := strings.TrimSpace(in.ExtractedText)
	userNumber := strings.TrimSpace(in.UserDocumentNumber)
	var found []string
	if userNumber != "" {
		found = ExtractDocumentNumbers(text)
		if !containsNumber(found, userNumber) {
			return red(RuleNumberMismatch)
		}
	}

	if len([]rune(text)) < minReadableTextLength {
		return SemaphoreResult{Semaphore: SemaphoreYellow, FailedRules: []string{RuleTextMissing}}
	}
	if userNumber != "" && len(found) == 0 {
		return SemaphoreResult{Semaphore: SemaphoreYellow, FailedRules: []string{RuleNumberNotFound}}
	}
	return SemaphoreResult{Semaphore: SemaphoreGreen, FailedRules: []string{}}
}

// EvaluateDocument evaluates the semaphore from the document's own fields.
func EvaluateDocument(doc Document, now time.Time) SemaphoreResult {
	in := SemaphoreInput{ExpiryDate: doc.ExpiryDate, IssueDate: doc.IssueDate}
	if doc.ExtractedText != nil {
		in.ExtractedText = *doc.ExtractedText
	}
	if doc.UserDocumentNumber != nil {
		in.UserDocumentNumber = *doc.UserDocumentNumber
	}
	return EvaluateSemaphore(in, now)
}

// ExtractDocumentNumbers returns the distinct candidate identity numbers found in text.
func ExtractDocumentNumbers(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for _, m := range bareNumberPattern.FindAllString(text, -1) {
		seen[m] = struct{}{}
	}
	for _, m := range prefixedNumberPattern.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func NormalizeDocumentNumber(v string) string {
	return numberSeparators.ReplaceAllString(strings.TrimSpace(v), "")
}

func containsNumber(found []string, userNumber string) bool {
	want := NormalizeDocumentNumber(userNumber)
	for _, n := range found {
		if NormalizeDocumentNumber(n) == want {
			return true
		}
	}
	return false
}

func red(rule string) SemaphoreResult {
	return SemaphoreResult{Semaphore: SemaphoreRed, FailedRules: []string{rule}}
}
