// Package errors はframefit全体のエラーハンドリングと警告システムを提供します。
// 学習オーケストレーションの各段階（抽出・分割・学習・探索・集計）で発生する
// 失敗を型付きのエラーとして表現し、致命的でない事象は警告として通知します。
package errors

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("framefit-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// SplitBoundaryWarningやDegenerateFitWarningの処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// SplitBoundaryWarning は最新データ（youngest window）の保持により、
// 要求よりも多くの行がテストセットへ強制的に割り当てられた場合の警告です。
type SplitBoundaryWarning struct {
	Requested float64 // ランダム分割で要求されたテスト比率
	Forced    int     // テストセットへ強制された最新行の数
	Total     int     // 分割対象の総行数
}

func (w *SplitBoundaryWarning) Error() string {
	return fmt.Sprintf("keeping youngest %d of %d rows in test set (random test fraction %.4f)",
		w.Forced, w.Total, w.Requested)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *SplitBoundaryWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("requested", w.Requested).
		Int("forced", w.Forced).
		Int("total", w.Total).
		Str("type", "SplitBoundaryWarning")
}

// NewSplitBoundaryWarning は新しいSplitBoundaryWarningを作成します。
func NewSplitBoundaryWarning(requested float64, forced, total int) *SplitBoundaryWarning {
	return &SplitBoundaryWarning{Requested: requested, Forced: forced, Total: total}
}

// DegenerateFitWarning は混同行列の真陽性（TP）が0件の場合に発生する警告です。
// エラーではありませんが、下流のレポートが健全に見えてしまうことを防ぐために通知します。
type DegenerateFitWarning struct {
	Goal   string
	Cutoff float64
	Rows   int
}

func (w *DegenerateFitWarning) Error() string {
	if w.Goal != "" {
		return fmt.Sprintf("very bad fit with 0 TP for goal '%s' at cutoff %.4f over %d rows", w.Goal, w.Cutoff, w.Rows)
	}
	return fmt.Sprintf("very bad fit with 0 TP at cutoff %.4f over %d rows", w.Cutoff, w.Rows)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DegenerateFitWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("goal", w.Goal).
		Float64("cutoff", w.Cutoff).
		Int("rows", w.Rows).
		Str("type", "DegenerateFitWarning")
}

// NewDegenerateFitWarning は新しいDegenerateFitWarningを作成します。
func NewDegenerateFitWarning(goal string, cutoff float64, rows int) *DegenerateFitWarning {
	return &DegenerateFitWarning{Goal: goal, Cutoff: cutoff, Rows: rows}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// InsufficientDataError はラグウィンドウに必要な行数よりもデータが少ない場合のエラーです。
type InsufficientDataError struct {
	Op       string
	Required int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("framefit: %s: insufficient data, need at least %d rows but got %d", e.Op, e.Required, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InsufficientDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("required", e.Required).
		Int("got", e.Got).
		Str("type", "InsufficientDataError")
}

// NewInsufficientDataError は新しいInsufficientDataErrorを作成し、スタックトレースを付与します。
func NewInsufficientDataError(op string, required, got int) error {
	err := &InsufficientDataError{Op: op, Required: required, Got: got}
	return errors.WithStack(err)
}

// InvalidSpecError は特徴量・ラベル定義（ゴール、ラグ、平滑化）が不正な場合のエラーです。
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("framefit: invalid spec field '%s': %s", e.Field, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidSpecError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("field", e.Field).
		Str("reason", e.Reason).
		Str("type", "InvalidSpecError")
}

// NewInvalidSpecError は新しいInvalidSpecErrorを作成し、スタックトレースを付与します。
func NewInvalidSpecError(field, reason string) error {
	err := &InvalidSpecError{Field: field, Reason: reason}
	return errors.WithStack(err)
}

// NoLossSignalError はハイパーパラメータ探索の試行、または交差検証のフォールドが
// 利用可能な損失を返さなかった場合のエラーです。探索結果を汚染しないよう致命的に扱います。
type NoLossSignalError struct {
	Phase  string // "trial" または "fold"
	Index  int
	Params map[string]interface{}
}

func (e *NoLossSignalError) Error() string {
	if len(e.Params) > 0 {
		return fmt.Sprintf("framefit: %s %d produced no loss signal (params: %s)", e.Phase, e.Index, formatParams(e.Params))
	}
	return fmt.Sprintf("framefit: %s %d produced no loss signal", e.Phase, e.Index)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NoLossSignalError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("phase", e.Phase).
		Int("index", e.Index).
		Interface("params", e.Params).
		Str("type", "NoLossSignalError")
}

// NewNoLossSignalError は新しいNoLossSignalErrorを作成し、スタックトレースを付与します。
func NewNoLossSignalError(phase string, index int, params map[string]interface{}) error {
	err := &NoLossSignalError{Phase: phase, Index: index, Params: params}
	return errors.WithStack(err)
}

// FitStepError はフォールドまたは試行の中でモデルが失敗した場合のエラーです。
// どのフォールド・試行で、どのパラメータが使われていたかを保持します。
type FitStepError struct {
	Phase  string
	Index  int
	Params map[string]interface{}
	Err    error
}

func (e *FitStepError) Error() string {
	msg := fmt.Sprintf("framefit: %s %d failed", e.Phase, e.Index)
	if len(e.Params) > 0 {
		msg += fmt.Sprintf(" (params: %s)", formatParams(e.Params))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FitStepError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FitStepError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("phase", e.Phase).
		Int("index", e.Index).
		Interface("params", e.Params).
		Str("type", "FitStepError")
}

// NewFitStepError は新しいFitStepErrorを作成し、スタックトレースを付与します。
func NewFitStepError(phase string, index int, params map[string]interface{}, err error) error {
	stepErr := &FitStepError{Phase: phase, Index: index, Params: params, Err: err}
	return errors.WithStack(stepErr)
}

// ShapeMismatchError は整列しているべき配列の形状が一致しない場合のエラーです。
// 混同行列の計算で黙ってnilを返す代わりにこのエラーを返します。
type ShapeMismatchError struct {
	Op     string
	Shapes map[string]int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("framefit: %s: shape mismatch %s", e.Op, formatShapes(e.Shapes))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ShapeMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Interface("shapes", e.Shapes).
		Str("type", "ShapeMismatchError")
}

// NewShapeMismatchError は新しいShapeMismatchErrorを作成し、スタックトレースを付与します。
func NewShapeMismatchError(op string, shapes map[string]int) error {
	err := &ShapeMismatchError{Op: op, Shapes: shapes}
	return errors.WithStack(err)
}

// NotFittedError はモデルが未学習の状態で `Predict` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("framefit: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("framefit: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("framefit: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("framefit: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("framefit: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("framefit: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// StackTrace はcockroachdb/errorsが記録したスタックトレースの安全な詳細を返します。
// 記録がない場合は空文字列を返します。
func StackTrace(err error) string {
	details := errors.GetSafeDetails(err).SafeDetails
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

// formatParams はパラメータをキー順に整形します（エラーメッセージの再現性のため）。
func formatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatShapes(shapes map[string]int) string {
	keys := make([]string, 0, len(shapes))
	for k := range shapes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, shapes[k])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrNotImplemented は機能が未実装の場合のエラーです。
	ErrNotImplemented = New("not implemented")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
