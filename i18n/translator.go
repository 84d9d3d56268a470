package i18n

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "tag" or "expected").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_delimiters":
			return "区切り文字の設定が不正です"
		case "schema_mismatch":
			if tag := data["tag"]; tag != "" {
				return "マッピングモデルに一致しない要素です: " + tag
			}
			return "マッピングモデルに一致しない要素です"
		case "unexpected_close":
			return "開始タグと一致しない終了タグです"
		case "text_not_allowed":
			return "この位置にはテキストを書き込めません"
		case "no_current_segment":
			return "現在のセグメントがありません"
		case "limit_exceeded":
			return "上限を超えました"
		case "parse_error":
			return "解析エラー"
		case "truncated":
			return "打ち切られました"
		}
	default: // "en"
		switch code {
		case "invalid_delimiters":
			return "invalid delimiter set"
		case "schema_mismatch":
			if tag := data["tag"]; tag != "" {
				return "element " + tag + " does not match the mapping model"
			}
			return "element does not match the mapping model"
		case "unexpected_close":
			return "close does not match the innermost open element"
		case "text_not_allowed":
			return "text is only allowed in leaf elements"
		case "no_current_segment":
			return "no current segment"
		case "limit_exceeded":
			return "limit exceeded"
		case "parse_error":
			return "parse error"
		case "truncated":
			return "truncated"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
