package service

import (
	"math"
	"time"
)

// commissionRate is the platform's cut of the job amount.
const commissionRate = 0.20

// applySplit recomputes the payment split for the given amounts. The
// operator rate applies only to fleet jobs; independent drivers keep the
// whole gross. DriverPayout absorbs rounding so the four parts always sum
// to amount.
func applySplit(amount, serviceFee, operatorRate float64, hasOperator bool) (commission, driverPayout, operatorPayout float64) {
	commission = round2(amount * commissionRate)
	driverGross := amount - commission - serviceFee

	if hasOperator {
		operatorPayout = round2(driverGross * operatorRate)
	}
	driverPayout = round2(driverGross - operatorPayout)
	return commission, driverPayout, operatorPayout
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func nowUTC() time.Time { return time.Now().UTC() }
