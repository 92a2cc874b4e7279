package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"dns-price-bot/models"
)

// FormatStats renders the stats report as a chat message
func FormatStats(report *models.StatsReport) string {
	var b strings.Builder
	b.WriteString("📊 Статистика отслеживания:\n\n")
	fmt.Fprintf(&b, "• Отслеживается товаров: %d\n", report.TrackedCount)
	fmt.Fprintf(&b, "• Целевая цена: %s BYN\n", report.TargetPrice)
	fmt.Fprintf(&b, "• Интервал проверки: %s\n", FormatInterval(report.CheckInterval))
	fmt.Fprintf(&b, "• Ночной режим: %s\n", enabledRu(report.QuietEnabled))
	if report.QuietNow {
		b.WriteString("• Сейчас: ночное время")
	} else {
		b.WriteString("• Сейчас: дневное время")
	}
	if report.Cheapest != nil {
		fmt.Fprintf(&b, "\n\n💰 Самая низкая цена: %s\n🎮 %s", report.Cheapest.PriceDisplay, report.Cheapest.Title)
	}
	return b.String()
}

// FormatInterval prints an interval in hours when it is a whole number of hours.
func FormatInterval(d time.Duration) string {
	if d > 0 && d%time.Hour == 0 {
		return fmt.Sprintf("%d ч.", int(d/time.Hour))
	}
	return d.String()
}

func enabledRu(b bool) string {
	if b {
		return "включен"
	}
	return "выключен"
}

// PrintStatsReport writes a terminal summary of the known set
func PrintStatsReport(w io.Writer, report *models.StatsReport) {
	border := strings.Repeat("═", 55)
	thin := strings.Repeat("─", 55)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center("VIDEO CARD PRICE TRACKER ", 55))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n OVERVIEW\n%s\n", thin)
	fmt.Fprintf(w, "  Tracked Items     : %d\n", report.TrackedCount)
	fmt.Fprintf(w, "  Target Price      : %s\n", report.TargetPrice)
	fmt.Fprintf(w, "  Check Interval    : %v\n", report.CheckInterval)
	fmt.Fprintf(w, "  Quiet Hours       : %s\n", onOff(report.QuietEnabled))

	if report.TrackedCount > 0 {
		fmt.Fprintf(w, "  Average Price     : %s\n", report.AveragePrice.StringFixed(2))
		fmt.Fprintf(w, "  Minimum Price     : %s\n", report.MinPrice.StringFixed(2))
		fmt.Fprintf(w, "  Maximum Price     : %s\n", report.MaxPrice.StringFixed(2))
	}

	if report.Cheapest != nil {
		fmt.Fprintf(w, "\n CHEAPEST CARD\n%s\n", thin)
		fmt.Fprintf(w, "  Title    : %s\n", truncate(report.Cheapest.Title, 45))
		fmt.Fprintf(w, "  Price    : %s\n", report.Cheapest.PriceDisplay)
		fmt.Fprintf(w, "  Since    : %s\n", report.Cheapest.FirstSeen.Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
