package book

// StockPolicy 全局馆藏上限策略
// 纯函数,不做任何读写;所需的汇总值由调用方从存储中实时计算
type StockPolicy struct {
	MaxBookStock int // 所有图书副本总数之和的上限
}

// NewStockPolicy 创建馆藏上限策略
func NewStockPolicy(maxBookStock int) StockPolicy {
	return StockPolicy{MaxBookStock: maxBookStock}
}

// AdmitStockChange 判断目标图书的副本总数调整是否允许
// otherTotal: 除目标图书外所有图书的副本总数之和(新建图书时为当前全部之和)
// proposedTotal: 目标图书调整后的副本总数
func (p StockPolicy) AdmitStockChange(otherTotal, proposedTotal int) error {
	if otherTotal+proposedTotal > p.MaxBookStock {
		return ErrStockLimitExceeded.WithMessage(
			"超出馆藏总量上限: 上限%d, 其余图书%d, 本书%d", p.MaxBookStock, otherTotal, proposedTotal)
	}
	return nil
}

// Remaining 在当前汇总下还可以增加的副本数
func (p StockPolicy) Remaining(currentTotal int) int {
	if currentTotal >= p.MaxBookStock {
		return 0
	}
	return p.MaxBookStock - currentTotal
}
