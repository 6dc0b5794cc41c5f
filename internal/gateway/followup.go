package gateway

// followupQuestion picks a canned follow-up by how long the conversation is.
func followupQuestion(messages int) string {
	switch {
	case messages <= 2:
		return "That's interesting! Can you tell me more about that experience?"
	case messages <= 4:
		return "How did you handle any challenges that came up during that project?"
	case messages <= 6:
		return "What would you do differently if you had to approach that problem again?"
	case messages <= 8:
		return "That's a great example! How does this experience relate to the role you're applying for?"
	default:
		return "Thank you for sharing that with me. Do you have any questions about the role or our company?"
	}
}
