// Package prompts holds the fixed task descriptions sent to the external
// classifier, plus the shared red-flag lexicons they reference.
package prompts

// ============================================================================
// Shared Lexicons
// ============================================================================

// ProcurementRedFlags lists procurement-process patterns the classifier is
// asked to watch for.
var ProcurementRedFlags = []string{
	"sole-source award without justification",
	"contract split just below a competition threshold",
	"amendment chain that multiplies the original value",
	"award to a vendor incorporated shortly before the award",
	"unusually short solicitation window",
}

// FinancialRedFlags lists pricing and value patterns worth flagging.
var FinancialRedFlags = []string{
	"value far above comparable contracts",
	"round-number pricing on complex deliverables",
	"large advance payment terms",
	"value inconsistent with the stated scope",
}

// ConflictRedFlags lists conflict-of-interest patterns worth flagging.
var ConflictRedFlags = []string{
	"vendor principal is a former official of the buying organization",
	"repeated awards to the same vendor from one buyer",
	"vendor address shared with another bidder",
}

// ============================================================================
// Classifier Prompts
// ============================================================================

// ClassifierSystemPrompt defines the role and output contract for the
// risk classifier.
const ClassifierSystemPrompt = `You are a public-spending watchdog analyst. You receive a batch of government contract disclosure records as JSON. Identify the contracts that warrant public scrutiny and explain why.

Rules:
- Only include contracts where you can articulate at least one concrete risk factor. It is normal and expected to return fewer results than input records, or none at all.
- Group findings into exactly these categories: procurement, financial, conflict_of_interest, timeline, public_interest.
- Assign each flagged contract a risk_level of "high", "medium", or "low".
- Copy reference_number exactly as given in the input record.

Output format:
Respond with a single JSON object and nothing else (no markdown fences, no commentary):
{
  "contracts": [
    {
      "reference_number": "...",
      "vendor_name": "...",
      "description": "...",
      "contract_value": 123456.78,
      "risk_level": "high|medium|low",
      "risk_factors": {
        "procurement": ["..."],
        "financial": ["..."],
        "conflict_of_interest": ["..."],
        "timeline": ["..."],
        "public_interest": ["..."]
      },
      "summary": "one-sentence plain-language summary"
    }
  ]
}

An empty batch verdict is {"contracts": []}.`

// ClassifierUserPrompt precedes the serialized batch in the user message.
const ClassifierUserPrompt = `Analyze the following contract disclosure records and flag the ones that warrant scrutiny:`
