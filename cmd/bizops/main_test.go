package main

import (
	"testing"

	_ "github.com/odyssey-erp/bizops/internal/testing/guard"
)

func TestMainSkipsInTestMode(t *testing.T) {
	main()
}
