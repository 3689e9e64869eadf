package llm

import (
	"fmt"
	"strings"

	"ReelsAutoposter/internal/domain"
)

const systemInstruction = `You write short, catchy captions for Facebook Reels, videos and photos.
Rules:
1. Remove every promotional or spam fragment from the input: links, shop names, "link in bio", "buy now" and similar. Leave no link behind.
2. Keep the dominant language of the input.
3. If the cleaned input is substantive, lightly polish it and append 3-5 relevant hashtags unless it already has enough.
4. If the cleaned input is empty, too short or generic, write a fresh caption that fits the media.
5. Never ask questions back. Reply with the caption only, no quotes or explanations.
6. Stay concise.`

var examples = []struct {
	in  string
	out string
}{
	{"the last one is king🔥🔥", "Their moves had us cracking up! 😂 #funny #viral #foryou"},
	{"- Top up Diamonds, Credits and more? try it at shop.example.com", "An unexpected moment that makes you smile! ✨ #entertainment #funny #reels"},
	{"This is a cool video.", "You can't make this up! 🤣 #viral #shorts #fun"},
}

// userPrompt renders the per-request prompt with a few worked examples.
func userPrompt(raw string, kind domain.MediaKind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Media type: %s.\n\n", kind.String())
	for _, ex := range examples {
		fmt.Fprintf(&b, "--- Input ---\n%s\n--- Output ---\n%s\n\n", ex.in, ex.out)
	}
	b.WriteString("--- Input ---\n")
	b.WriteString(strings.TrimSpace(raw))
	b.WriteString("\n--- Output ---\n")
	return b.String()
}
