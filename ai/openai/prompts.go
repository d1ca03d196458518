package openai

import (
	"fmt"
	"strings"
)

const annotationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {"type": "string"}
    },
    "frames": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["entities", "frames"],
  "additionalProperties": false
}`

const annotationPromptTemplate = `Identify the entity mentions and the semantic frames of the given technical documentation text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- An entity mention is a noun phrase naming a product, component, setting, protocol or concept, optionally with its adjectives.
- Copy each entity mention exactly as it is written in the text, including its capitalization. Do not normalize it.
- Do not include determiners, pronouns or whole clauses in a mention.
- Frames must be chosen from this list: %s.
- Include a frame only if a word of the text clearly evokes it.
- If nothing can be identified, return empty arrays.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "What is the default timeout for API requests?"
Output:
{"entities":["default timeout","API requests"],"frames":["Waiting","Request"]}

Example:
Input: "Restart the gateway after changing the keystore password."
Output:
{"entities":["gateway","keystore password"],"frames":["Activity_start","Cause_change"]}`

const framesResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "frames": {
      "type": "array",
      "items": {"type": "array", "items": {"type": "string"}}
    }
  },
  "required": ["frames"],
  "additionalProperties": false
}`

const framesPromptTemplate = `Assign semantic frames to each numbered sentence and return them as JSON.

Output ONLY valid JSON which complies with the schema given below, with exactly one array of frames per
sentence, in sentence order:

%s

Rules:
- Frames must be chosen from this list: %s.
- Include a frame only if a word of the sentence clearly evokes it.
- A sentence that evokes no frame gets an empty array.

Example:
Input:
1. Stop the gateway.
2. The file is small.
Output:
{"frames":[["Activity_stop"],[]]}`

func buildAnnotationPrompt(frames []string) string {
	return fmt.Sprintf(annotationPromptTemplate, annotationResponseSchema, strings.Join(frames, ", "))
}

func buildFramesPrompt(frames []string) string {
	return fmt.Sprintf(framesPromptTemplate, framesResponseSchema, strings.Join(frames, ", "))
}

// numberLines renders texts as a numbered list, one per line.
func numberLines(texts []string) string {
	var b strings.Builder
	for i, text := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(strings.Fields(text), " "))
	}
	return b.String()
}
