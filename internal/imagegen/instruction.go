package imagegen

import (
	"fmt"
	"strings"

	"hairstudio/internal/domain"
)

const (
	synthesisNegative  = "unnatural color, flat, dull, lifeless hair, helmet-like, wig, hat, hair accessories, blurry, deformed, worst quality, (face changed), (skin texture changed), (different person)"
	refinementNegative = "(face changed), (skin texture changed), (different person), (background changed), blurry, deformed, worst quality, unnatural color"
)

// BuildSynthesisInstruction describes a hair-only inpainting of the
// original photo.
func BuildSynthesisInstruction(req SynthesisRequest, withReference bool) string {
	var b strings.Builder
	b.WriteString("Goal: keep every facial feature of the original image unchanged (face outline, eyes, nose, mouth, skin texture) and the background unchanged, and composite the requested hairstyle as naturally as possible. Edit the hair only.\n")
	b.WriteString("Original image: the attached photo.\n")
	fmt.Fprintf(&b, "Customer's current hair brightness: %s (JHCA level scale).\n", req.CurrentLevel)
	b.WriteString("Mask: none is attached. Detect the face region automatically, leave it untouched, and inpaint only the hair.\n\n")

	b.WriteString("Instructions:\n")
	b.WriteString("1. Quality: masterpiece, best quality, photorealistic hair, ultra realistic, lifelike hair texture, individual hair strands visible.\n")
	fmt.Fprintf(&b, "2. Style: %s\n", withDetail(req.HairstyleName, req.HairstyleDesc))
	fmt.Fprintf(&b, "3. Color: %s\n", withDetail(req.HaircolorName, req.HaircolorDesc))
	fmt.Fprintf(&b, "4. Brightness (most important): the proposed brightness is %s on the JHCA level scale. Compare it with the current %s and reproduce %s within a realistic range.\n", req.RecommendedLevel, req.CurrentLevel, req.RecommendedLevel)
	b.WriteString("5. Lighting: match the lighting of the original image.\n")
	b.WriteString("6. Texture: a natural finish that fits the style, such as soft and airy or glossy and sleek.\n")
	if text := strings.TrimSpace(req.UserRequests); text != "" {
		fmt.Fprintf(&b, "7. Customer requests: \"%s\". Apply them to the hair only.\n", text)
	}
	if withReference {
		b.WriteString("A second image is attached as a reference for the desired hairstyle and color. Take the hair from it, never the face.\n")
	}
	b.WriteString("\nNegative prompt:\n")
	b.WriteString(synthesisNegative)
	b.WriteString("\n")
	return b.String()
}

// BuildRefinementInstruction edits only the hair of an already generated image.
func BuildRefinementInstruction(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.WriteString("Goal: adjust only the hair of the attached base image (a hairstyle composite) according to the user's instruction.\n")
	b.WriteString("Base image: the attached image.\n")
	fmt.Fprintf(&b, "User instruction: \"%s\"\n", text)
	b.WriteString("Strict rules:\n")
	b.WriteString("1. Face and background: the face outline, eyes, nose, mouth, skin texture and background must not change at all.\n")
	fmt.Fprintf(&b, "2. Hair only: apply \"%s\" to the hair only.\n", text)
	b.WriteString("3. Brightness: if the user mentions brightness (for example \"brighter\"), interpret it as a change on the JHCA level scale (for example level 10 to level 12) within a realistic range.\n")
	b.WriteString("4. Quality: keep a photorealistic, lifelike hair texture.\n\n")
	b.WriteString("Negative prompt:\n")
	b.WriteString(refinementNegative)
	b.WriteString("\n")
	return b.String()
}

// SwitchColorText is the refinement text for swapping to the other
// proposed color.
func SwitchColorText(color domain.ColorOption) string {
	text := fmt.Sprintf("Change the hair color to %s", color.Name)
	if level := strings.TrimSpace(color.RecommendedLevel); level != "" {
		text += fmt.Sprintf(" at %s on the JHCA level scale", level)
	}
	if desc := strings.TrimSpace(color.Description); desc != "" {
		text += " (" + desc + ")"
	}
	return text + ", keeping the hairstyle exactly as it is."
}

func withDetail(name, detail string) string {
	name = strings.TrimSpace(name)
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return name
	}
	return name + " (" + detail + ")"
}
