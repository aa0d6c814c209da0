package diagnosis

import "hairstudio/internal/providers/genai"

func swatch(example string) *genai.Schema {
	return genai.Object(
		genai.Prop("name", genai.String("")),
		genai.Prop("hex", genai.String("Hex code, e.g. "+example)),
	)
}

func colorOption(exampleName, exampleLevel string) *genai.Schema {
	return genai.Object(
		genai.Prop("name", genai.String("Trend color name, e.g. "+exampleName)),
		genai.Prop("description", genai.String("Why it suits the customer, including whether bleach is required")),
		genai.Prop("recommendedLevel", genai.String("Recommended brightness on the JHCA level scale, e.g. "+exampleLevel)),
	)
}

func styleOption(example string) *genai.Schema {
	return genai.Object(
		genai.Prop("name", genai.String("Hairstyle name, e.g. "+example)),
		genai.Prop("description", genai.String("Style description, 50 to 100 characters")),
	)
}

// ResponseSchema is sent as responseSchema and reused by Validate.
var ResponseSchema = genai.Object(
	genai.Prop("result", genai.Object(
		genai.Prop("face", genai.Object(
			genai.Prop("nose", genai.String("Nose features, e.g. high, rounded")),
			genai.Prop("mouth", genai.String("Mouth features, e.g. wide, thin lips")),
			genai.Prop("eyes", genai.String("Eye features, e.g. double eyelid, upturned")),
			genai.Prop("eyebrows", genai.String("Eyebrow features, e.g. arched, straight")),
			genai.Prop("forehead", genai.String("Forehead features, e.g. wide, narrow")),
		)),
		genai.Prop("skeleton", genai.Object(
			genai.Prop("neckLength", genai.String("long, short or average")),
			genai.Prop("faceShape", genai.String("round, long, base or oval")),
			genai.Prop("bodyLine", genai.String("straight, wave or natural")),
			genai.Prop("shoulderLine", genai.String("sloping, square or average")),
			genai.Prop("faceStereoscopy", genai.String("three-dimensional, flat or average")),
			genai.Prop("bodyTypeFeature", genai.String("upper-weighted (straight), lower-weighted (wave) or bony (natural)")),
		)),
		genai.Prop("personalColor", genai.Object(
			genai.Prop("baseColor", genai.String("yellow base or blue base")),
			genai.Prop("season", genai.String("spring, summer, autumn or winter")),
			genai.Prop("brightness", genai.String("high, medium or low value")),
			genai.Prop("saturation", genai.String("high, medium or low chroma")),
			genai.Prop("eyeColor", genai.String("e.g. light brown, near-black dark brown")),
		)),
		genai.Prop("hairCondition", genai.Object(
			genai.Prop("quality", genai.String("coarse, soft or average")),
			genai.Prop("curlType", genai.String("straight, wavy or kinky")),
			genai.Prop("damageLevel", genai.String("low (healthy), medium (slightly dry) or high (needs care)")),
			genai.Prop("volume", genai.String("thick, average or thin")),
			genai.Prop("currentLevel", genai.String("Current brightness on the JHCA level scale, e.g. about level 10")),
		).Describe("Current hair condition observed in the photos and videos")),
	)),
	genai.Prop("proposal", genai.Object(
		genai.Prop("hairstyles", genai.Object(
			genai.Prop("style1", styleOption("layered medium with waist")),
			genai.Prop("style2", styleOption("see-through bangs short")),
		).Describe("Two proposed hairstyles keyed style1 and style2")),
		genai.Prop("haircolors", genai.Object(
			genai.Prop("color1", colorOption("lavender ash", "level 10")),
			genai.Prop("color2", colorOption("pink beige", "level 12")),
		).Describe("Two proposed hair colors keyed color1 and color2")),
		genai.Prop("bestColors", genai.Object(
			genai.Prop("c1", swatch("#FFB6C1")),
			genai.Prop("c2", swatch("#FFDAB9")),
			genai.Prop("c3", swatch("#E6E6FA")),
			genai.Prop("c4", swatch("#98FB98")),
		).Describe("Four colors that suit the personal color, keyed c1 to c4")),
		genai.Prop("makeup", genai.Object(
			genai.Prop("eyeshadow", genai.String("e.g. golden brown")),
			genai.Prop("cheek", genai.String("e.g. peach pink")),
			genai.Prop("lip", genai.String("e.g. coral red")),
		).Describe("Makeup that suits the personal color")),
		genai.Prop("fashion", genai.Object(
			genai.Prop("recommendedStyles", genai.ArrayOf(genai.String("")).Describe("About two silhouettes, e.g. A-line, I-line")),
			genai.Prop("recommendedItems", genai.ArrayOf(genai.String("")).Describe("About two items, e.g. V-neck knit, tapered pants")),
		).Describe("Fashion suggestions based on the skeleton type")),
		genai.Prop("comment", genai.String("Overall review by the stylist, 200 to 300 characters")),
	)),
)
