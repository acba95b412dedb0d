package nlu

import "strings"

// buildIntentPrompt wraps the user command in the fixed extraction instructions.
func buildIntentPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("You are an inventory assistant for a small shop. Parse the user's command into a JSON object.\n\n")
	sb.WriteString("RULES:\n")
	sb.WriteString("- Understand Hinglish (mixed Hindi & English), e.g. \"becho\" means sell and \"kharido\" means buy/add.\n")
	sb.WriteString("- action must be exactly \"add\" or \"sell\" (lowercase).\n")
	sb.WriteString("- product is the item name (string, at most three words, no quantities or units).\n")
	sb.WriteString("- quantity is a positive number; convert dozens to units (2 dozen = 24).\n")
	sb.WriteString("- price is a number if mentioned, otherwise null.\n")
	sb.WriteString("- If the command is ambiguous, choose the most likely interpretation and fill missing fields with null.\n")
	sb.WriteString("- Output ONLY the JSON object. No explanations, no extra text, no code fences.\n\n")
	sb.WriteString("Format:\n")
	sb.WriteString(`{"action":"add","product":"string","quantity":1,"price":null}` + "\n\n")
	sb.WriteString("Examples:\n")
	sb.WriteString("User: \"add 5 kg rice\"\n")
	sb.WriteString(`Output: {"action":"add","product":"rice","quantity":5,"price":null}` + "\n")
	sb.WriteString("User: \"sell 2 dozen eggs for ₹300\"\n")
	sb.WriteString(`Output: {"action":"sell","product":"eggs","quantity":24,"price":300}` + "\n")
	sb.WriteString("User: \"5 kilo chawal becho 200 rupaye me\"\n")
	sb.WriteString(`Output: {"action":"sell","product":"chawal","quantity":5,"price":200}` + "\n\n")
	sb.WriteString("User: \"")
	sb.WriteString(strings.ReplaceAll(strings.TrimSpace(text), `"`, `'`))
	sb.WriteString("\"\nOutput:")
	return sb.String()
}
