package lending

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const billingDay = 24 * time.Hour

// PaymentMethods are offered with every return receipt.
var PaymentMethods = []string{"Cash", "UPI"}

// ParseDailyPrice reads a resource's price text. Anything that is not a
// finite, non-negative number bills as 0.
func ParseDailyPrice(price string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// BillableDays counts started days between approvedAt and now, with a
// minimum of one. A nil approvedAt counts as now.
func BillableDays(approvedAt *time.Time, now time.Time) int {
	if approvedAt == nil {
		return 1
	}
	elapsed := now.Sub(*approvedAt)
	if elapsed <= 0 {
		return 1
	}
	days := int(elapsed / billingDay)
	if elapsed%billingDay != 0 {
		days++
	}
	return max(1, days)
}

// TotalDue is dailyPrice*days rounded to cents. The exact binary value of
// the product is rounded, so 2.675 gives 2.67 and a true tie like 0.125
// goes to even.
func TotalDue(dailyPrice float64, days int) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(dailyPrice*float64(days), 'f', 2, 64), 64)
	return v
}
