package maths

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestTensor3SetGet(t *testing.T) {
	tn := NewTensor3(3)
	tn.Set(0, 1, 2, 5)
	tn.Set(2, 2, 2, -1)
	if tn.At(0, 1, 2) != 5 || tn.At(2, 2, 2) != -1 {
		t.Fatalf("张量读写错误: %v %v", tn.At(0, 1, 2), tn.At(2, 2, 2))
	}
	tn.Set(0, 0, 0, 7)
	tn.Zero()
	if tn.At(0, 1, 2) != 0 || tn.At(0, 0, 0) != 0 {
		t.Errorf("清零失败")
	}
}

func TestTensor3OutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("越界访问应panic")
		}
	}()
	NewTensor3(2).At(0, 2, 0)
}

func TestTensor3ContractFirst(t *testing.T) {
	tn := NewTensor3(2)
	tn.Set(0, 0, 1, 2)
	tn.Set(1, 0, 1, 3)
	tn.Set(1, 1, 1, 4)
	w := mat.NewVecDense(2, []float64{10, 100})
	dst := mat.NewDense(2, 2, nil)
	tn.ContractFirst(w, dst)
	want := mat.NewDense(2, 2, []float64{0, 320, 0, 400})
	if !mat.Equal(dst, want) {
		t.Errorf("收缩结果错误:\n%v", mat.Formatted(dst))
	}
}
