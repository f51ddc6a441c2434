package farmer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
)

// Rough point-to-currency conversion rates used in the daily report.
const (
	pointsPerDollar = 1300
	pointsPerEuro   = 1500
)

// CreateMessage renders the end-of-run report: one block per account plus
// earned and overall totals with currency equivalents.
func CreateMessage(accounts []model.Account, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Daily report %s\n\n", now.Format("02/01/2006"))

	totalEarned := 0
	totalOverall := 0
	for i, acc := range accounts {
		index := i + 1
		switch {
		case acc.WasFinished(now):
			totalEarned += acc.Log.TodayPoints
			totalOverall += acc.Log.TotalPoints
			writeFarmedBlock(&b, index, acc, "✅ Farmed")
		case acc.WasSuspended():
			fmt.Fprintf(&b, "%d. %s\n📝 Status: ❌ Suspended\n\n", index, acc.Username)
		case acc.WasLocked():
			fmt.Fprintf(&b, "%d. %s\n📝 Status: ⚠️ Locked\n\n", index, acc.Username)
		case acc.GotUnusualActivity():
			fmt.Fprintf(&b, "%d. %s\n📝 Status: ⚠️ Unusual activity detected\n\n", index, acc.Username)
		case acc.RanIntoError():
			fmt.Fprintf(&b, "%d. %s\n📝 Status: ⛔️ %s\n\n", index, acc.Username, acc.Log.Status)
		default:
			totalEarned += acc.Log.TodayPoints
			totalOverall += acc.Log.TotalPoints
			writeFarmedBlock(&b, index, acc, "Farmed on "+acc.Log.LastCheck)
		}
	}

	fmt.Fprintf(&b, "💵 Total earned points: %d ($%.2f) (€%.2f)",
		totalEarned, float64(totalEarned)/pointsPerDollar, float64(totalEarned)/pointsPerEuro)
	fmt.Fprintf(&b, "\n💵 Total points overall: %d ($%.2f) (€%.2f)",
		totalOverall, float64(totalOverall)/pointsPerDollar, float64(totalOverall)/pointsPerEuro)
	return b.String()
}

func writeFarmedBlock(b *strings.Builder, index int, acc model.Account, status string) {
	fmt.Fprintf(b, "%d. %s\n📝 Status: %s\n⭐️ Earned points: %d\n🏅 Total points: %d\n",
		index, acc.Username, status, acc.Log.TodayPoints, acc.Log.TotalPoints)
	if acc.ReadyForRedeem() {
		b.WriteString(redeemMessage(acc))
	} else {
		b.WriteString("\n")
	}
}

// redeemMessage announces a reachable redeem goal, with a multiplier when the
// balance covers it several times over.
func redeemMessage(acc model.Account) string {
	count := 1
	if acc.RedeemGoalPrice > 0 {
		count = acc.Log.TotalPoints / acc.RedeemGoalPrice
	}
	if count > 1 {
		return fmt.Sprintf("🎁 Ready to redeem: %s for %d points (%dx)\n\n",
			acc.RedeemGoalTitle, acc.RedeemGoalPrice, count)
	}
	return fmt.Sprintf("🎁 Ready to redeem: %s for %d points\n\n",
		acc.RedeemGoalTitle, acc.RedeemGoalPrice)
}
