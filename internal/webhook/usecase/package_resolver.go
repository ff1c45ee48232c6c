package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

var (
	packageCodePattern    = regexp.MustCompile(`\bGROUP[_-]?(\d+)\b`)
	partySizePattern      = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(PEOPLE|PERSON|PPL)\b`)
	groupPartySizePattern = regexp.MustCompile(`(?i)\bGROUP[_-]?(\d{1,2})\b`)
)

// defaultPackageMap returns the built-in package code to party size mapping.
func defaultPackageMap() map[string]int {
	return map[string]int{
		"GROUP_1": 1,
		"GROUP_2": 2,
		"GROUP_4": 4,
		"GROUP_6": 6,
		"GROUP_8": 8,
	}
}

// PackageResolver maps an order and payment to a package code and party size.
// Resolution precedence: explicit GROUP_N codes in the order text, then
// free-text party sizes ("4 people"), then the first line item quantity.
type PackageResolver struct {
	packageMap map[string]int
}

// NewPackageResolver creates a new PackageResolver from the configured mapping
// JSON. Malformed mappings fall back to the defaults so a config mistake never
// stops ingestion.
func NewPackageResolver(mappingJSON string, logger *slog.Logger) *PackageResolver {
	if mappingJSON == "" {
		return &PackageResolver{packageMap: defaultPackageMap()}
	}

	parsed := map[string]any{}
	if err := json.Unmarshal([]byte(mappingJSON), &parsed); err != nil {
		logger.Error("failed parsing package mapping, using defaults", slog.Any("error", err))
		return &PackageResolver{packageMap: defaultPackageMap()}
	}

	packageMap := map[string]int{}
	for key, value := range parsed {
		if size, ok := asPositiveInt(value); ok {
			packageMap[strings.ToUpper(key)] = size
		}
	}
	return &PackageResolver{packageMap: packageMap}
}

// Resolve derives the package context from the candidate text fields of the
// order and payment. The returned note names the resolution path when the
// package was not an exact mapped code.
func (r *PackageResolver) Resolve(order *domain.Order, payment *domain.Payment) domain.PackageContext {
	candidates := collectCandidates(order, payment)

	for _, candidate := range candidates {
		code := extractPackageCode(candidate)
		if code == "" {
			continue
		}

		if size, ok := r.packageMap[code]; ok {
			return domain.PackageContext{PackageCode: code, PartySize: size}
		}
		return domain.PackageContext{
			PackageCode: code,
			PartySize:   extractPartySize(candidate),
			Note:        domain.NotePackageCodeNotInMap,
		}
	}

	for _, candidate := range candidates {
		if size := extractPartySize(candidate); size > 0 {
			return domain.PackageContext{
				PackageCode: fmt.Sprintf("GROUP_%d", size),
				PartySize:   size,
				Note:        domain.NotePackageInferredFromText,
			}
		}
	}

	if order != nil && len(order.LineItems) > 0 {
		if quantity, err := strconv.ParseFloat(order.LineItems[0].Quantity, 64); err == nil && quantity > 0 {
			size := int(quantity)
			return domain.PackageContext{
				PackageCode: fmt.Sprintf("GROUP_%d", size),
				PartySize:   size,
				Note:        domain.NotePackageInferredFromQty,
			}
		}
	}

	return domain.PackageContext{
		PackageCode: domain.UnmappedPackageCode,
		Note:        domain.NoteUnmappedPackage,
	}
}

// collectCandidates gathers the text fields that may carry a package code, in
// resolution priority order.
func collectCandidates(order *domain.Order, payment *domain.Payment) []string {
	var candidates []string

	if order != nil {
		if order.ReferenceID != "" {
			candidates = append(candidates, order.ReferenceID)
		}
		for _, item := range order.LineItems {
			for _, token := range []string{item.Name, item.VariationName, item.Note} {
				if token != "" {
					candidates = append(candidates, token)
				}
			}
		}
	}

	if payment != nil && payment.Note != "" {
		candidates = append(candidates, payment.Note)
	}
	return candidates
}

// extractPackageCode normalizes GROUP-style codes ("group-4", "GROUP_4") to
// the canonical GROUP_N form, or returns "" when none is present.
func extractPackageCode(value string) string {
	match := packageCodePattern.FindStringSubmatch(strings.ToUpper(value))
	if match == nil {
		return ""
	}
	return "GROUP_" + match[1]
}

// extractPartySize pulls a party size from free text, preferring explicit
// people counts over group codes. Returns 0 when nothing matches.
func extractPartySize(value string) int {
	if match := partySizePattern.FindStringSubmatch(value); match != nil {
		size, _ := strconv.Atoi(match[1])
		return size
	}
	if match := groupPartySizePattern.FindStringSubmatch(value); match != nil {
		size, _ := strconv.Atoi(match[1])
		return size
	}
	return 0
}

// asPositiveInt coerces mapping values to positive integers, accepting JSON
// numbers and numeric strings.
func asPositiveInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return int(v), true
		}
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			return int(parsed), true
		}
	}
	return 0, false
}
