package ai

import (
	"fmt"
	"strings"

	"bridge/api/internal/screenplay"
)

const (
	bridgeSystemPrompt      = "You are a skilled screenwriter assistant that specializes in screenplay format and narrative flow."
	enhanceSystemPrompt     = "You are a skilled screenwriter assistant that specializes in screenplay format and narrative enhancement."
	suggestionsSystemPrompt = "You are a skilled screenwriting consultant who provides precise, actionable feedback."
	chatSystemPrompt        = `You are Bridge, an AI writing assistant specialized in screenwriting.
You help writers improve their scripts with practical, specific suggestions.
Keep your responses concise, informative, and focused on screenwriting craft.
When asked about screenwriting concepts, provide clear explanations with examples.
When asked to help with a scene or story element, offer specific, actionable advice.`
)

func bridgePrompt(req screenplay.BridgeRequest) string {
	var b strings.Builder
	b.WriteString("You are an expert screenwriter. I need you to write a scene that bridges these two scenes in a screenplay:\n\n")
	fmt.Fprintf(&b, "PREVIOUS SCENE:\n%s\n\n", req.Previous)
	fmt.Fprintf(&b, "NEXT SCENE:\n%s\n\n", req.Next)
	fmt.Fprintf(&b, "CHARACTERS: %s\n", strings.Join(req.Characters, ", "))
	if req.ScriptContext != "" {
		fmt.Fprintf(&b, "\nSCRIPT CONTEXT: %s\n", req.ScriptContext)
	}
	b.WriteString(`
Write a scene that creates a natural transition between these two scenes. Follow standard screenplay format.
Focus on creating a logical and emotionally satisfying connection between these scenes.
The scene should be concise yet effective in bridging the narrative gap.`)
	return b.String()
}

func enhancePrompt(content, enhancementType string, characters []string, scriptContext string) string {
	var b strings.Builder
	b.WriteString("You are an expert screenwriter. I need you to enhance this scene:\n\n")
	fmt.Fprintf(&b, "SCENE CONTENT:\n%s\n\n", content)
	fmt.Fprintf(&b, "ENHANCEMENT TYPE: %s\n\n", enhancementType)
	fmt.Fprintf(&b, "CHARACTERS: %s\n", joinOrNotSpecified(characters))
	if scriptContext != "" {
		fmt.Fprintf(&b, "\nSCRIPT CONTEXT: %s\n", scriptContext)
	}

	switch enhancementType {
	case "dialogue":
		b.WriteString(`
Focus on improving the dialogue in this scene. Make it more natural, revealing of character, and impactful.
Preserve the overall flow and intent, but enhance the way characters speak to each other.`)
	case "action":
		b.WriteString(`
Focus on enhancing the action descriptions in this scene. Make them more vivid, tense, and engaging.
Improve the visual imagery while maintaining the scene's intent.`)
	case "characterDevelopment":
		b.WriteString(`
Focus on improving character development in this scene. Add moments that reveal depth, motivation, or backstory.
Make sure the characters' actions and dialogue reflect their personalities and goals.`)
	case "plotDevelopment":
		b.WriteString(`
Focus on strengthening the plot elements in this scene. Enhance how this scene advances the story.
Add elements that build tension, foreshadow future events, or connect to earlier scenes.`)
	default:
		b.WriteString(`
Improve this scene while maintaining its original purpose and style. Enhance the writing quality.`)
	}

	b.WriteString(`
Keep the scene in standard screenplay format.
Return ONLY the enhanced scene, with no explanations or comments.`)
	return b.String()
}

func suggestionsPrompt(content string, characters []string) string {
	var b strings.Builder
	b.WriteString("You are an expert screenwriter. Based on the following scene, generate 3-5 specific suggestions to improve it:\n\n")
	fmt.Fprintf(&b, "SCENE CONTENT:\n%s\n\n", content)
	fmt.Fprintf(&b, "CHARACTERS: %s\n", joinOrNotSpecified(characters))
	b.WriteString(`
For each suggestion:
1. Focus on a specific element (dialogue, action, character motivation, setting description, etc.)
2. Explain why this change would improve the scene
3. Provide a brief example of how it might be implemented

Format each suggestion as a clear, concise paragraph that a writer could directly apply.`)
	return b.String()
}

func joinOrNotSpecified(characters []string) string {
	if len(characters) == 0 {
		return "Not specified"
	}
	return strings.Join(characters, ", ")
}
