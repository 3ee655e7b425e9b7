package ai

import (
	"fmt"
	"strings"
)

// FAQEntry is the part of an FAQ record that goes into the prompt
type FAQEntry struct {
	Question string
	Answer   string
	Keywords []string
}

// PromptBuilder renders the system prompt for one department profile
type PromptBuilder struct {
	profile Profile
}

func NewPromptBuilder(profile Profile) *PromptBuilder {
	return &PromptBuilder{profile: profile}
}

// FAQContext linearizes every entry, in the given order, as Q/A/Keywords blocks
func FAQContext(entries []FAQEntry) string {
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, fmt.Sprintf("Q: %s\nA: %s\nKeywords: %s",
			e.Question, e.Answer, strings.Join(e.Keywords, ", ")))
	}
	return strings.Join(blocks, "\n\n")
}

// SystemPrompt combines the department identity, static facts, FAQ block and guidelines
func (b *PromptBuilder) SystemPrompt(entries []FAQEntry) string {
	p := b.profile
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an AI assistant for the %s at %s. ", p.Department, p.Institution)
	sb.WriteString("Your role is to help students, prospective students, and visitors with information about the department.\n\n")

	if len(p.Venues) > 0 {
		sb.WriteString("Class venues:\n")
		for _, v := range p.Venues {
			fmt.Fprintf(&sb, "- %s: %s\n", v.Class, v.Venue)
		}
		sb.WriteString("\n")
	}

	if len(p.Staff) > 0 {
		sb.WriteString("Department staff:\n")
		for _, name := range p.Staff {
			fmt.Fprintf(&sb, "- %s\n", name)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Here is the official FAQ information for the department:\n\n")
	sb.WriteString(FAQContext(entries))
	sb.WriteString("\n\nGuidelines:\n")
	for i, g := range p.Guidelines {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, g)
	}

	sb.WriteString("\nWhen answering questions, prioritize information from the FAQ database above. ")
	sb.WriteString("If the question isn't covered in the FAQs, provide general helpful guidance while noting that specific details should be confirmed with the department.")

	return sb.String()
}

// UserTurn appends the user's message to the system prompt as one text payload
func UserTurn(systemPrompt, message string) string {
	return systemPrompt + "\n\nUser: " + message
}
