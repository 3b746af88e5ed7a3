package domain

import "fmt"

// FormatSequentialCode renders a human-facing reference such as RFL-000123.
func FormatSequentialCode(prefix string, id int64) string {
	return fmt.Sprintf("%s-%06d", prefix, id)
}
