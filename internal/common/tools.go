package common

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns "<prefix>_<32 hex chars>", or a bare dashed UUID when prefix is empty.
func GenerateID(prefix string) string {
	id := uuid.New()
	if prefix == "" {
		return id.String()
	}
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(id.String(), "-", ""))
}

// GenerateQuoteID fee quote id, "fee" prefix
func GenerateQuoteID() string {
	return GenerateID("fee")
}

// GenerateReportID risk report id, "rpt" prefix
func GenerateReportID() string {
	return GenerateID("rpt")
}

// GeneratePositionID generates a position ID with "pos" prefix
func GeneratePositionID() string {
	return GenerateID("pos")
}
