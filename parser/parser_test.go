package parser

import (
	"testing"

	"github.com/curol/reqdata/param"
	"github.com/curol/reqdata/status"
)

func TestHookChainOrderAndShortCircuit(t *testing.T) {
	var hc HookChain
	var order []string
	hc.Add("first", func(data any, upload *param.UploadRef, chunk []byte) status.Status {
		order = append(order, "first")
		return status.OK
	}, nil)
	hc.Add("second", func(data any, upload *param.UploadRef, chunk []byte) status.Status {
		order = append(order, "second")
		return status.INTERRUPT
	}, nil)
	hc.Add("third", func(data any, upload *param.UploadRef, chunk []byte) status.Status {
		order = append(order, "third")
		return status.OK
	}, nil)

	st := hc.Invoke(&param.UploadRef{}, []byte("x"))
	if st != status.INTERRUPT {
		t.Fatalf("Invoke() = %v, want INTERRUPT", st)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v, want [first second] (third must not run)", order)
	}
}

func TestNilHookChainInvokeIsOK(t *testing.T) {
	var hc *HookChain
	if st := hc.Invoke(&param.UploadRef{}, nil); st != status.OK {
		t.Errorf("Invoke() on nil chain = %v, want OK", st)
	}
}
