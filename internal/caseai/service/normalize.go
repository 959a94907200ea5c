package service

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smallbiznis/sanad/internal/caseai/domain"
	"golang.org/x/crypto/blake2b"
)

var (
	summaryKeys   = []string{"ai_summary", "summary"}
	strengthKeys  = []string{"ai_case_strength", "case_strength", "caseStrength"}
	reasoningKeys = []string{"ai_eligibility_reasoning", "eligibility_reasoning", "eligibilityReasoning"}
	draftKeys     = []string{"ai_claim_draft", "claim_draft", "claimDraft"}
	nextKeys      = []string{"ai_next_action", "next_action", "nextAction"}
)

// inputHash is the cache key of a call: the claim snapshot, the evidence, the
// airline response and the mode.
func inputHash(c domain.CaseContext) (string, error) {
	payload, err := json.Marshal(struct {
		ClaimData           domain.ClaimData `json:"claimData"`
		EvidenceText        string           `json:"evidenceText"`
		AirlineResponseText string           `json:"airlineResponseText"`
		Mode                domain.Mode      `json:"mode"`
	}{c.Claim, c.EvidenceText, c.AirlineResponseText, c.Mode})
	if err != nil {
		return "", fmt.Errorf("encode case context: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// normalize maps the analyzer's response onto the canonical field set. A
// response that is not a JSON object becomes the summary.
func normalize(raw string) (domain.Fields, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(stripFence(raw)), &m); err != nil || m == nil {
		return domain.Fields{Summary: text(raw)}, false
	}

	fields := domain.Fields{
		Summary:              pick(m, summaryKeys),
		EligibilityReasoning: pick(m, reasoningKeys),
		ClaimDraft:           pick(m, draftKeys),
		NextAction:           pick(m, nextKeys),
	}
	validStrength := true
	if s := pick(m, strengthKeys); s != nil {
		if strength, ok := domain.ParseCaseStrength(*s); ok {
			fields.CaseStrength = &strength
		} else {
			validStrength = false
		}
	}
	return fields, validStrength
}

// pick returns the first non-empty value among keys.
func pick(m map[string]any, keys []string) *string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
			continue
		case string:
			if s := text(v); s != nil {
				return s
			}
		case bool:
			if v {
				return text("true")
			}
		default:
			b, err := json.Marshal(v)
			if err == nil {
				if s := text(string(b)); s != nil {
					return s
				}
			}
		}
	}
	return nil
}

func stripFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimPrefix(raw, "json")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func text(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
