package gate

import (
	"fmt"
	"strings"
)

// PlaybookLesson derives a one-line human-readable rule summary for a
// decision, keyed off the task-card goal. Schema extraction, medical
// dosing, and multimodal consistency each get domain wording,
// everything else falls back to generic threshold lessons.
func PlaybookLesson(decision Decision, signals Signals, card TaskCard, threshold float64) string {
	goal := strings.ToLower(card.Goal)

	switch {
	case strings.Contains(goal, "json") || strings.Contains(goal, "schema"):
		switch decision {
		case DecisionAsk:
			return "If date missing, ASK for ISO 8601 before apply."
		case DecisionRefuse:
			if signals.ValidatorPassRate < 1.0 {
				return "If required fields missing or invalid format, REFUSE and request correction."
			}
			return "If schema validation fails, REFUSE and request valid JSON."
		default:
			return "If all required fields present and valid, APPLY."
		}

	case strings.Contains(goal, "medical") || strings.Contains(goal, "dose") || strings.Contains(goal, "drug"):
		if decision == DecisionRefuse {
			if signals.ValidatorPassRate < 1.0 {
				return "If dose > mg/kg×max, REFUSE and propose physician review."
			}
			return "If safety checks fail, REFUSE and suggest safe alternative."
		}
		return "If all safety validators pass, APPLY."

	case strings.Contains(goal, "multimodal") || strings.Contains(goal, "image") || strings.Contains(goal, "description"):
		if decision == DecisionRefuse {
			if signals.Consistency < 1.0 {
				return "If objects in image contradict text nouns, REFUSE and request a new caption."
			}
			return "If description contradicts visual content, REFUSE and request accurate description."
		}
		return "If description matches image content, APPLY."
	}

	switch decision {
	case DecisionAsk:
		return fmt.Sprintf("If sigma in [%.2f, %.2f) and 1-2 fields missing, ASK for clarification.", threshold-DefaultAskBand, threshold)
	case DecisionRefuse:
		return fmt.Sprintf("If sigma < threshold (%.2f), REFUSE and explain reason.", threshold)
	default:
		return fmt.Sprintf("If sigma >= threshold (%.2f), APPLY.", threshold)
	}
}
