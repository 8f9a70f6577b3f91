package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Block analysis prompts (AI analysis proxy)
// ============================================================================

// AnalystSystemPrompt sets the model's role for block analysis.
const AnalystSystemPrompt = "You are a senior IPv4 brokerage analyst. Be technical and concise."

// blockAnalysisTemplate asks for liquidity, supply-side risk and outreach guidance.
const blockAnalysisTemplate = `Analyze this IPv4 Block: %s belonging to %s.
Provide:
1. Liquidity analysis based on block size.
2. Supply-side risk assessment (Legacy status check).
3. Suggested outreach strategy for a broker.`

// BlockAnalysisPrompt renders the user prompt for one block.
// Empty inputs are rendered as "unknown" so the model never sees a dangling sentence.
func BlockAnalysisPrompt(cidr, orgName string) string {
	return fmt.Sprintf(blockAnalysisTemplate, orDefault(cidr, "unknown block"), orDefault(orgName, "an unknown organization"))
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}
