package domain

// Face describes facial features observed by the model.
type Face struct {
	Nose     string `json:"nose"`
	Mouth    string `json:"mouth"`
	Eyes     string `json:"eyes"`
	Eyebrows string `json:"eyebrows"`
	Forehead string `json:"forehead"`
}

type Skeleton struct {
	NeckLength      string `json:"neckLength"`
	FaceShape       string `json:"faceShape"`
	BodyLine        string `json:"bodyLine"`
	ShoulderLine    string `json:"shoulderLine"`
	FaceStereoscopy string `json:"faceStereoscopy"`
	BodyTypeFeature string `json:"bodyTypeFeature"`
}

type PersonalColor struct {
	BaseColor  string `json:"baseColor"`
	Season     string `json:"season"`
	Brightness string `json:"brightness"`
	Saturation string `json:"saturation"`
	EyeColor   string `json:"eyeColor"`
}

// HairCondition carries the current JHCA brightness level in CurrentLevel.
type HairCondition struct {
	Quality      string `json:"quality"`
	CurlType     string `json:"curlType"`
	DamageLevel  string `json:"damageLevel"`
	Volume       string `json:"volume"`
	CurrentLevel string `json:"currentLevel"`
}

// DiagnosisResult is the structured diagnosis section of a model response.
type DiagnosisResult struct {
	Face          Face          `json:"face"`
	Skeleton      Skeleton      `json:"skeleton"`
	PersonalColor PersonalColor `json:"personalColor"`
	HairCondition HairCondition `json:"hairCondition"`
}

type StyleOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ColorOption struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	RecommendedLevel string `json:"recommendedLevel"`
}

type Hairstyles struct {
	Style1 StyleOption `json:"style1"`
	Style2 StyleOption `json:"style2"`
}

type Haircolors struct {
	Color1 ColorOption `json:"color1"`
	Color2 ColorOption `json:"color2"`
}

type Swatch struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

type BestColors struct {
	C1 Swatch `json:"c1"`
	C2 Swatch `json:"c2"`
	C3 Swatch `json:"c3"`
	C4 Swatch `json:"c4"`
}

type Makeup struct {
	Eyeshadow string `json:"eyeshadow"`
	Cheek     string `json:"cheek"`
	Lip       string `json:"lip"`
}

type Fashion struct {
	RecommendedStyles []string `json:"recommendedStyles"`
	RecommendedItems  []string `json:"recommendedItems"`
}

// Proposal holds the styling options derived from a diagnosis.
type Proposal struct {
	Hairstyles Hairstyles `json:"hairstyles"`
	Haircolors Haircolors `json:"haircolors"`
	BestColors BestColors `json:"bestColors"`
	Makeup     Makeup     `json:"makeup"`
	Fashion    Fashion    `json:"fashion"`
	Comment    string     `json:"comment"`
}

// Style resolves a proposal style key.
func (p Proposal) Style(key string) (StyleOption, bool) {
	switch key {
	case "style1":
		return p.Hairstyles.Style1, true
	case "style2":
		return p.Hairstyles.Style2, true
	}
	return StyleOption{}, false
}

// Color resolves a proposal color key.
func (p Proposal) Color(key string) (ColorOption, bool) {
	switch key {
	case "color1":
		return p.Haircolors.Color1, true
	case "color2":
		return p.Haircolors.Color2, true
	}
	return ColorOption{}, false
}

// AlternateColorKey returns the other proposed color key.
func AlternateColorKey(key string) (string, bool) {
	switch key {
	case "color1":
		return "color2", true
	case "color2":
		return "color1", true
	}
	return "", false
}

// Profile is what the customer entered before uploading media.
type Profile struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
}
