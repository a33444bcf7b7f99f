package templates

import (
	_ "embed"
)

//go:embed receipt.html
var receiptHTML string
