package capture

import (
	"context"
	"errors"
	"fmt"

	"blockcam/internal/catalog"
	"blockcam/internal/preview"
	"blockcam/internal/service/ai"
	"blockcam/internal/service/camera"
	"blockcam/internal/service/registry"
)

var (
	ErrNoCategory        = errors.New("no category selected")
	ErrAlreadyCaptured   = errors.New("category already captured")
	ErrInvalidCrop       = errors.New("invalid crop region")
	ErrEmptyCrop         = errors.New("crop is empty")
	ErrBackgroundRemoval = errors.New("background removal failed")
	ErrDetection         = errors.New("detection failed")
	ErrSave              = errors.New("failed to save capture")
)

// Message returns the on-screen text for the outcome of a capture.
func Message(err error) string {
	switch {
	case err == nil:
		return "できた！"
	case errors.Is(err, camera.ErrNoFrame):
		return "カメラがうごいてないみたい..."
	case errors.Is(err, ErrNoCategory):
		return "エラー: フラッグが選択されていません"
	case errors.Is(err, catalog.ErrUnknownCategory), errors.Is(err, registry.ErrUnknownCategory):
		return "エラー: 不明なブロックです"
	case errors.Is(err, ErrAlreadyCaptured):
		return "もう とったよ！ とりなおすなら けしてからね"
	case errors.Is(err, ai.ErrNothingDetected):
		return "なにもみつけられなかったよ..."
	case errors.Is(err, ai.ErrWrongObject):
		return "うーん、ちがうものみたい？ もういちど！"
	case errors.Is(err, ErrDetection), errors.Is(err, ai.ErrNotInitialized):
		return "エラー！うまくしらべられなかった..."
	case errors.Is(err, ErrInvalidCrop), errors.Is(err, preview.ErrDegenerateRect):
		return "エラー: クロップ範囲が無効です"
	case errors.Is(err, ErrEmptyCrop):
		return "エラー: クロップ結果が空です"
	case errors.Is(err, ErrBackgroundRemoval):
		return "エラー！ はいけいをけせなかった..."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "じかんぎれ... もういちど！"
	}
	return "エラー が はっせい しました"
}

// SuccessMessage is shown after a capture was accepted.
func SuccessMessage(r *Result) string {
	if r.Mode == catalog.ModeGuide {
		return fmt.Sprintf("%s をほぞんしたよ！", r.Category)
	}
	return fmt.Sprintf("%s をみつけた！", r.Category)
}
