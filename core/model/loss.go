package model

import (
	"math"
	"strconv"
)

// Loss はモデルが報告する任意の損失値です。
// ゼロ値は「損失なし」を表し、探索の目的関数としては利用できません。
type Loss struct {
	Value float64
	Valid bool
}

// NoLoss は損失を報告しないモデルの戻り値です。
var NoLoss = Loss{}

// LossOf はvを損失として包みます。NaNは損失なしとして扱います。
func LossOf(v float64) Loss {
	if math.IsNaN(v) {
		return NoLoss
	}
	return Loss{Value: v, Valid: true}
}

// Get は値と有効かどうかを返します。
func (l Loss) Get() (float64, bool) {
	return l.Value, l.Valid
}

func (l Loss) String() string {
	if !l.Valid {
		return "none"
	}
	return strconv.FormatFloat(l.Value, 'g', 6, 64)
}
