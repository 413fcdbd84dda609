package llm

import (
	"ev-faq-dialogue-service/internal/models"
)

const systemPromptEN = `You are a helpful customer service agent for an EV battery charging and swapping service in India.
You assist hypermarket delivery personnel (HDP) with queries about charging stations, battery swapping, account management, and technical issues.

IMPORTANT: When you receive additional context in the conversation, use it to answer the user's question accurately.
If the context says "No relevant information found", respond EXACTLY with:
"I'm sorry, I don't have information about that in my knowledge base. Would you like me to transfer your call to a human agent who can better assist you?"

CONVERSATION STYLE:
- Be polite, professional, and empathetic
- Speak naturally as if in a phone conversation
- Keep responses brief (2-3 sentences) unless more detail is requested
- Your responses should be conversational without complex formatting, emojis, asterisks, or other symbols

Service areas: Delhi NCR, Mumbai, Bangalore, Hyderabad, and Pune
Support: 24x7 helpline available at 1800-XXX-XXXX
`

const systemPromptHI = `आप भारत में EV बैटरी चार्जिंग और स्वैपिंग सेवा के लिए एक सहायक ग्राहक सेवा एजेंट हैं।

महत्वपूर्ण: जब आपको conversation में additional context मिले, तो उसका उपयोग करके उत्तर दें।
यदि context में "No relevant information found" है, तो कहें:
"मुझे खेद है, मेरे पास इसके बारे में जानकारी नहीं है। क्या आप चाहेंगे कि मैं आपका कॉल किसी मानव एजेंट को transfer कर दूं?"

बातचीत की शैली:
- विनम्र और पेशेवर रहें
- स्वाभाविक रूप से बोलें
- संक्षिप्त उत्तर दें (2-3 वाक्य)
`

// SystemPrompt returns the agent persona for the given language.
func SystemPrompt(lang models.Language) string {
	if lang == models.LanguageHindi {
		return systemPromptHI
	}
	return systemPromptEN
}

// ContextMessage wraps retrieved FAQ context for injection into the chat.
// The model reads it as its own prior knowledge; it is never surfaced to
// the user.
func ContextMessage(contextBlock string) Message {
	return Message{
		Role: RoleAssistant,
		Content: "RELEVANT INFORMATION FROM KNOWLEDGE BASE:\n" + contextBlock +
			"\n\nUse this information to answer the user's question accurately.",
	}
}

// NoContextMessage tells the model the knowledge base had nothing
// relevant, steering it toward offering a human-agent transfer.
func NoContextMessage() Message {
	return Message{
		Role:    RoleAssistant,
		Content: "No relevant information found in the knowledge base for this query. Offer to transfer to human agent.",
	}
}

// BuildMessages assembles the completion request: language-selected
// system prompt, then the session transcript in speaker order, then any
// extra injected messages (typically a ContextMessage or
// NoContextMessage). Utterances with empty text are skipped.
func BuildMessages(lang models.Language, transcript []models.FinalizedUtterance, extra ...Message) []Message {
	messages := make([]Message, 0, len(transcript)+len(extra)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: SystemPrompt(lang)})

	for _, utt := range transcript {
		if utt.Text == "" {
			continue
		}
		role := RoleUser
		if utt.Speaker == models.SpeakerAssistant {
			role = RoleAssistant
		}
		messages = append(messages, Message{Role: role, Content: utt.Text})
	}

	return append(messages, extra...)
}
