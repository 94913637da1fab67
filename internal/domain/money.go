package domain

import "fmt"

// Money хранит денежную сумму в центавах (BRL). Вся арифметика целочисленная.
type Money int64

// Format возвращает сумму в виде "R$ 5,90": запятая как десятичный разделитель,
// без разделителя тысяч.
func (m Money) Format() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, v/100, v%100)
}

// Times умножает сумму на количество единиц.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

func (m Money) String() string { return m.Format() }
