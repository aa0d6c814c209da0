// Package i18n holds the user-facing workflow messages in Japanese and English.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	Japanese = "ja"
	English  = "en"
)

// Key identifies a catalog message.
type Key string

const (
	MsgProfileIncomplete      Key = "profile_incomplete"
	MsgUploadsIncomplete      Key = "uploads_incomplete"
	MsgUploadFailed           Key = "upload_failed"
	MsgDiagnosisMissing       Key = "diagnosis_missing"
	MsgDiagnosisFailed        Key = "diagnosis_failed"
	MsgSelectionIncomplete    Key = "selection_incomplete"
	MsgSelectionUnknown       Key = "selection_unknown"
	MsgInspirationStyleNeeded Key = "inspiration_style_missing"
	MsgInspirationColorNeeded Key = "inspiration_color_missing"
	MsgSynthesisFailed        Key = "synthesis_failed"
	MsgServiceUnavailable     Key = "service_unavailable"
	MsgRefinementFailed       Key = "refinement_failed"
	MsgRefinementTextRequired Key = "refinement_text_required"
	MsgNoAlternateColor       Key = "no_alternate_color"
	MsgNoImage                Key = "no_image"
	MsgSaveFailed             Key = "save_failed"
	MsgNoTransition           Key = "no_transition"
	MsgWrongPhase             Key = "wrong_phase"
	MsgBusy                   Key = "busy"
	MsgUnauthorized           Key = "unauthorized"
	MsgInternal               Key = "internal"
)

var messages = map[Key][2]string{
	MsgProfileIncomplete:      {"お名前と性別を入力してください。", "Please enter your name and gender."},
	MsgUploadsIncomplete:      {"必須の素材がアップロードされていません: %s", "Required media has not been uploaded: %s"},
	MsgUploadFailed:           {"%s のアップロードに失敗しました。もう一度選択してください。", "Uploading %s failed. Please select the file again."},
	MsgDiagnosisMissing:       {"AI診断結果がありません。", "No diagnosis result is available."},
	MsgDiagnosisFailed:        {"AI診断に失敗しました: %s", "The diagnosis failed: %s"},
	MsgSelectionIncomplete:    {"ヘアスタイルとヘアカラーをそれぞれ選択してください。", "Please choose both a hairstyle and a hair color."},
	MsgSelectionUnknown:       {"選択肢 %s は存在しません。", "The option %s does not exist."},
	MsgInspirationStyleNeeded: {"「ご希望のヘアスタイル」を選択しましたが、ご希望の写真がアップロードされていません。素材アップロードに戻ってアップロードしてください。", "You chose the hairstyle from your inspiration photo, but none was uploaded. Go back to the upload step and add one."},
	MsgInspirationColorNeeded: {"「ご希望のヘアカラー」を選択しましたが、ご希望の写真がアップロードされていません。素材アップロードに戻ってアップロードしてください。", "You chose the hair color from your inspiration photo, but none was uploaded. Go back to the upload step and add one."},
	MsgSynthesisFailed:        {"画像生成に失敗しました: %s", "Image generation failed: %s"},
	MsgServiceUnavailable:     {"AIサービスが混み合っています。しばらくしてから再度お試しください。", "The AI service is busy. Please try again in a little while."},
	MsgRefinementFailed:       {"微調整に失敗しました: %s", "Refinement failed: %s"},
	MsgRefinementTextRequired: {"微調整の内容を入力してください。", "Please describe the adjustment."},
	MsgNoAlternateColor:       {"切り替えられるカラー提案がありません。", "There is no other proposed color to switch to."},
	MsgNoImage:                {"保存できる画像がありません。", "There is no generated image to save."},
	MsgSaveFailed:             {"ギャラリーへの保存に失敗しました: %s", "Saving to the gallery failed: %s"},
	MsgNoTransition:           {"この画面からは移動できません。", "You cannot move on from this step."},
	MsgWrongPhase:             {"現在の画面ではこの操作はできません。", "This action is not available at the current step."},
	MsgBusy:                   {"処理中です。しばらくお待ちください。", "A request is still running. Please wait."},
	MsgUnauthorized:           {"認証エラーが発生しました。再度ログインしてください。", "Authentication failed. Please sign in again."},
	MsgInternal:               {"サーバーでエラーが発生しました。", "Something went wrong on the server."},
}

var (
	cat     = catalog.NewBuilder(catalog.Fallback(language.English))
	matcher = language.NewMatcher([]language.Tag{language.Japanese, language.English})
	codes   = []string{Japanese, English}
)

func init() {
	for key, m := range messages {
		if err := cat.SetString(language.Japanese, string(key), m[0]); err != nil {
			panic(err)
		}
		if err := cat.SetString(language.English, string(key), m[1]); err != nil {
			panic(err)
		}
	}
}

// T renders key for locale. Unknown locales get English.
func T(locale string, key Key, args ...any) string {
	tag := language.English
	if locale == Japanese {
		tag = language.Japanese
	}
	return message.NewPrinter(tag, message.Catalog(cat)).Sprintf(string(key), args...)
}

// Match maps an Accept-Language style value onto a supported locale, or ""
// when nothing supported is requested.
func Match(raw string) string {
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return ""
	}
	return codes[idx]
}

// Supported reports whether locale has a catalog.
func Supported(locale string) bool {
	return locale == Japanese || locale == English
}
