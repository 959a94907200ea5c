package ai

import (
	"context"
	"fmt"
	"strings"

	casedomain "github.com/smallbiznis/sanad/internal/caseai/domain"
)

const analystPrompt = `You are a claims representative who analyses, prepares and manages
compensation claims against airlines on behalf of passengers. This system handles flight
claims only.`

// Analyze runs one case-analysis mode in JSON mode and returns the raw content.
func (c *Client) Analyze(ctx context.Context, cc casedomain.CaseContext) (string, error) {
	return c.complete(ctx, chatRequest{
		Messages: []message{
			textMessage("system", caseSystemPrompt(cc)),
			textMessage("user", modeInstruction(cc.Mode)),
		},
		MaxTokens:      2000,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
}

func caseSystemPrompt(cc casedomain.CaseContext) string {
	var b strings.Builder
	b.WriteString(analystPrompt)
	b.WriteString("\n\nCase details:\n")
	fmt.Fprintf(&b, "- Airline: %s\n", cc.Claim.Airline)
	fmt.Fprintf(&b, "- Flight number: %s\n", cc.Claim.FlightNumber)
	fmt.Fprintf(&b, "- Date: %s\n", cc.Claim.Date)
	fmt.Fprintf(&b, "- From: %s\n", cc.Claim.From)
	fmt.Fprintf(&b, "- To: %s\n", cc.Claim.To)
	fmt.Fprintf(&b, "- Disruption: %s\n", cc.Claim.DisruptionType)
	if cc.Claim.DelayMinutes != nil {
		fmt.Fprintf(&b, "- Delay: %d minutes\n", *cc.Claim.DelayMinutes)
	}
	if cc.Claim.ReasonText != nil {
		fmt.Fprintf(&b, "- Reason: %s\n", *cc.Claim.ReasonText)
	}

	evidence := strings.TrimSpace(cc.EvidenceText)
	if evidence == "" {
		evidence = "No written evidence."
	}
	b.WriteString("\nEvidence:\n")
	b.WriteString(evidence)

	if cc.Mode == casedomain.ModeFollowup {
		response := strings.TrimSpace(cc.AirlineResponseText)
		if response == "" {
			response = "No response yet."
		}
		b.WriteString("\n\nAirline response:\n")
		b.WriteString(response)
	}
	return b.String()
}

func modeInstruction(mode casedomain.Mode) string {
	switch mode {
	case casedomain.ModeDraft:
		return `Draft a formal claim letter to the airline covering the flight details, the
disruption, the compensation requested and a response deadline. Reply with JSON only:
{"ai_claim_draft": "full letter", "ai_next_action": "step after sending"}`
	case casedomain.ModeFollowup:
		return `Analyse the airline's response, recommend accept, counter or escalate, and draft
a reply if one is needed. Reply with JSON only:
{"ai_summary": "current position", "ai_claim_draft": "reply text", "ai_next_action": "accept|counter|escalate"}`
	}
	return `Analyse this case. Reply with JSON only:
{"ai_summary": "short case summary", "ai_case_strength": "strong|medium|weak",
"ai_eligibility_reasoning": "why compensation is or is not owed", "ai_next_action": "suggested next step"}`
}
