package farmer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/pkg/utils"
)

// The dashboard JSON is embedded in the portal page between these markers.
const (
	dashboardMarkerStart = "var dashboard = "
	dashboardMarkerEnd   = ";\n        appDataModule.constant(\"prefetchedDashboard\", dashboard);"
)

type promotion struct {
	Name             string            `json:"name"`
	OfferID          string            `json:"offerId"`
	Complete         bool              `json:"complete"`
	PromotionType    string            `json:"promotionType"`
	PointProgress    int               `json:"pointProgress"`
	PointProgressMax int               `json:"pointProgressMax"`
	DestinationURL   string            `json:"destinationUrl"`
	Attributes       map[string]string `json:"attributes"`
}

type punchCard struct {
	ParentPromotion *promotion  `json:"parentPromotion"`
	ChildPromotions []promotion `json:"childPromotions"`
}

type counterEntry struct {
	PointProgress    int `json:"pointProgress"`
	PointProgressMax int `json:"pointProgressMax"`
}

type dashboard struct {
	UserStatus struct {
		AvailablePoints int `json:"availablePoints"`
		RedeemGoal      struct {
			Title string `json:"title"`
			Price int    `json:"price"`
		} `json:"redeemGoal"`
		Counters  map[string][]counterEntry `json:"counters"`
		LevelInfo struct {
			ActiveLevel string `json:"activeLevel"`
		} `json:"levelInfo"`
	} `json:"userStatus"`
	DailySetPromotions map[string][]promotion `json:"dailySetPromotions"`
	PunchCards         []punchCard            `json:"punchCards"`
	MorePromotions     []promotion            `json:"morePromotions"`
	PromotionalItem    *promotion             `json:"promotionalItem"`
}

// dashboardData extracts the embedded dashboard blob from the portal page,
// refreshing a bounded number of times when the page rendered without it.
func (s *session) dashboardData() (*dashboard, error) {
	for tries := 0; tries <= 5; tries++ {
		src, err := s.page.PageSource(s.ctx)
		if err == nil {
			raw := utils.FindBetween(src, dashboardMarkerStart, dashboardMarkerEnd)
			if raw != "" {
				var d dashboard
				if err := json.Unmarshal([]byte(raw), &d); err == nil {
					return &d, nil
				}
			}
		}
		if tries == 5 {
			break
		}
		_ = s.page.Reload(s.ctx)
		_ = s.page.WaitVisible(s.ctx, "#app-host", 30*time.Second)
	}
	return nil, ErrDashboardUnavailable
}

func (s *session) accountPoints() (int, error) {
	d, err := s.dashboardData()
	if err != nil {
		return 0, err
	}
	return d.UserStatus.AvailablePoints, nil
}

func (s *session) redeemGoal() (string, int, error) {
	d, err := s.dashboardData()
	if err != nil {
		return "", 0, err
	}
	return d.UserStatus.RedeemGoal.Title, d.UserStatus.RedeemGoal.Price, nil
}

// remainingSearches derives how many desktop and mobile searches are left from
// the dashboard counters. Points per search depend on the market tier.
func remainingSearches(d *dashboard) (pc, mobile int) {
	counters := d.UserStatus.Counters
	pcEntries := counters["pcSearch"]
	if len(pcEntries) < 2 {
		return 0, 0
	}

	progress := pcEntries[0].PointProgress + pcEntries[1].PointProgress
	target := pcEntries[0].PointProgressMax + pcEntries[1].PointProgressMax

	searchPoints := 1
	switch {
	case target == 33: // Level 1 EU
		searchPoints = 3
	case target == 55: // Level 1 US
		searchPoints = 5
	case target == 102: // Level 2 EU
		searchPoints = 3
	case target >= 170: // Level 2 US
		searchPoints = 5
	}
	pc = (target - progress) / searchPoints

	// Level 1 accounts have no mobile search counter at all.
	if d.UserStatus.LevelInfo.ActiveLevel != "Level1" {
		if mobileEntries := counters["mobileSearch"]; len(mobileEntries) > 0 {
			mobile = (mobileEntries[0].PointProgressMax - mobileEntries[0].PointProgress) / searchPoints
		}
	}
	return pc, mobile
}

// pointsFromBing reads the live points counter from the search page header.
// It never fails and never regresses: on any trouble it reports the current
// counter, so the tracked total is monotonic within a run.
func (s *session) pointsFromBing() int {
	points, err := s.readBingCounter()
	if err != nil || points < s.acc.PointsCounter {
		return s.acc.PointsCounter
	}
	return points
}

func (s *session) readBingCounter() (int, error) {
	if s.mobile {
		if err := s.page.Click(s.ctx, "#mHamburger"); err != nil {
			return 0, err
		}
		s.sleepExact(1 * time.Second)
		return s.readCounterText("#fly_id_rc")
	}
	return s.readCounterText("#id_rc")
}

func (s *session) readCounterText(selector string) (int, error) {
	expr := fmt.Sprintf(`(() => {
        const el = document.querySelector(%q);
        return el ? el.innerHTML : "";
    })()`, selector)
	raw, err := s.evalString(expr)
	if err != nil {
		return 0, err
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, fmt.Errorf("empty points counter")
	}
	return strconv.Atoi(raw)
}
