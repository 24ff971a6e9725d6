package generate

import "fmt"

// TranscriptPrompt asks for one "[MM:SS] text" line per sentence.
func TranscriptPrompt(targetLanguage string) string {
	return fmt.Sprintf(
		"You are a professional subtitle translator.\n"+
			"Listen to the audio of this media and translate it into %[1]s.\n\n"+
			"Output one line per sentence in exactly this format:\n"+
			"[MM:SS] Translated content in %[1]s\n\n"+
			"Example:\n"+
			"[00:01] (translated text)\n"+
			"[00:05] (translated text)\n\n"+
			"Keep the translation natural and fluent. Ignore background music and non-vocal segments.",
		targetLanguage,
	)
}

// RefinePrompt asks for a readable Markdown article built from transcript.
func RefinePrompt(transcript, targetLanguage string) string {
	return fmt.Sprintf(
		"Convert the following transcript into a fluent, readable article in %s.\n\n"+
			"Requirements:\n"+
			"1. Start with a catchy title as a # H1 heading.\n"+
			"2. Use Markdown.\n"+
			"3. Remove timestamps and filler words.\n"+
			"4. Organize the text into spaced paragraphs.\n"+
			"5. Use **bold** for important concepts.\n\n"+
			"Transcript:\n%s",
		targetLanguage, transcript,
	)
}

// SummaryPrompt asks for an inverted-pyramid news summary of transcript.
func SummaryPrompt(transcript, targetLanguage string) string {
	return fmt.Sprintf(
		"Act as a senior journalist at a top-tier news agency.\n"+
			"Write a news summary of the following transcript in %s, using the inverted pyramid:\n\n"+
			"1. **Headline** (# H1): professional, objective and catchy.\n"+
			"2. **The Lead** (## H2): who, what, when, where and why in 2-3 concise sentences.\n"+
			"3. **Key Details** (## H2): a bulleted list of the most important facts or arguments.\n"+
			"4. **Context & Quotes** (## H2): significant quotes or background mentioned in the text.\n"+
			"5. **Conclusion** (## H2): one brief, impartial closing sentence.\n\n"+
			"Tone: objective, third person, professional, concise.\n\n"+
			"Transcript:\n%s",
		targetLanguage, transcript,
	)
}
