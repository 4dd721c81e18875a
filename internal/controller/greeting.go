package controller

import "strings"

var greetings = map[string]string{
	"happy":   "I'm so glad to hear you're feeling happy today! 😊 What's bringing you joy?",
	"sad":     "I notice you're feeling sad today. I'm here to listen and support you. 💙 Would you like to share what's on your mind?",
	"angry":   "It sounds like you're feeling angry. That's completely valid. 😤 Sometimes talking through these feelings can help. What's bothering you?",
	"tired":   "Feeling tired can be overwhelming. 😴 Let's explore what might be contributing to this fatigue. How has your day been?",
	"anxious": "I understand you're feeling anxious. 😰 You're not alone in this. Would you like to try some breathing exercises, or would you prefer to talk about what's making you feel this way?",
}

const defaultGreeting = "Hello! I'm your AI therapist, and I'm here to support you today. 💚 How are you feeling right now?"

// Greeting picks the opening line for mood; unknown moods get the default.
func Greeting(mood string) string {
	if g, ok := greetings[strings.ToLower(strings.TrimSpace(mood))]; ok {
		return g
	}
	return defaultGreeting
}
