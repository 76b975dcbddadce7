// Package domain は講座プラットフォームのエンティティを定義する。
//
// 永続化は外部のリレーショナルデータベースが担うため、ここでは
// リポジトリとHTTPハンドラの間で受け渡す値の形だけを持つ。
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Course は講座を表す。作成・更新・削除は管理者のみが行う。
type Course struct {
	// ID は講座の不透明な識別子。
	ID string `json:"id"`
	// Title は講座名。
	Title string `json:"title"`
	// Description は講座の説明。
	Description string `json:"description"`
	// Level は難易度などの自由記述。
	Level string `json:"level"`
	// Price は受講料。常に0以上。
	Price float64 `json:"price"`
	// ImageURL はサムネイル画像の参照先。
	ImageURL string `json:"image_url"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
}

// CourseInput は講座作成時の入力値。
type CourseInput struct {
	Title       string
	Description string
	Level       string
	Price       float64
	ImageURL    string
}

// CoursePatch は講座の部分更新。nilのフィールドは変更しない。
type CoursePatch struct {
	Title       *string
	Description *string
	Level       *string
	Price       *float64
	ImageURL    *string
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (p CoursePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Level == nil && p.Price == nil && p.ImageURL == nil
}

// Price はJSONの数値・文字列どちらからでも受け付ける受講料。
// 解釈できない値や負の値は0として扱う。
type Price float64

// UnmarshalJSON は数値、数値文字列、その他の値をPriceに変換する。
func (p *Price) UnmarshalJSON(data []byte) error {
	*p = Price(ParsePrice(data))
	return nil
}

// ParsePrice はJSON表現の受講料を数値に変換する。失敗時は0を返す。
func ParsePrice(raw json.RawMessage) float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FlexibleID は数値でも文字列でも送られてくる識別子を文字列として受け取る。
type FlexibleID string

// UnmarshalJSON は数値・文字列の識別子を文字列に正規化する。
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("識別子の解析に失敗: %w", err)
	}
	switch t := v.(type) {
	case string:
		*id = FlexibleID(strings.TrimSpace(t))
	case float64:
		*id = FlexibleID(strconv.FormatFloat(t, 'f', -1, 64))
	case nil:
		*id = ""
	default:
		return fmt.Errorf("識別子の型が不正です: %T", v)
	}
	return nil
}
