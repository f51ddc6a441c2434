package farmer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/pkg/utils"
)

// completeDailySet walks today's card pack. A failed card is contained with a
// tab reset so the remaining cards still run.
func (s *session) completeDailySet() error {
	s.update("Daily Set", "-")

	d, err := s.dashboardData()
	if err != nil {
		return err
	}

	today := s.f.now().Format("01/02/2006")
	for _, activity := range d.DailySetPromotions[today] {
		if activity.Complete {
			continue
		}
		cardNumber := cardNumberOf(activity.OfferID)
		if err := s.runDailyActivity(activity, cardNumber); err != nil {
			s.log.JustLog(fmt.Sprintf("daily set card %s failed: %v", cardNumber, err))
			s.saveError(err)
			s.resetTabs()
		}
	}

	s.acc.Log.Daily = true
	return s.f.persist(s.acc)
}

func cardNumberOf(offerID string) string {
	if offerID == "" {
		return "?"
	}
	return offerID[len(offerID)-1:]
}

// runDailyActivity dispatches one card by its promotion type and point value.
func (s *session) runDailyActivity(activity promotion, cardNumber string) error {
	switch activity.PromotionType {
	case "urlreward":
		s.update("", "Search of card "+cardNumber)
		return s.completeSearchCard(activity)
	case "quiz":
		if activity.PointProgress != 0 {
			return nil
		}
		switch {
		case activity.PointProgressMax == 50:
			s.update("", "This or That of card "+cardNumber)
			return s.completeThisOrThat(activity, 10)
		case activity.PointProgressMax == 40 || activity.PointProgressMax == 30:
			s.update("", "Quiz of card "+cardNumber)
			return s.completeQuizCard(activity)
		case activity.PointProgressMax == 10:
			if isPollActivity(activity.DestinationURL) {
				s.update("", "Poll of card "+cardNumber)
				return s.completePollCard(activity)
			}
			s.update("", "Quiz of card "+cardNumber)
			return s.completeVariableCard(activity)
		}
	}
	return nil
}

// isPollActivity inspects the destination URL's search filters: polls carry a
// PollScenarioId filter, lightweight quizzes do not.
func isPollActivity(destination string) bool {
	u, err := url.Parse(destination)
	if err != nil {
		return false
	}
	ru := u.Query().Get("ru")
	if ru == "" {
		return false
	}
	inner, err := url.Parse(ru)
	if err != nil {
		return false
	}
	for _, f := range strings.Fields(inner.Query().Get("filters")) {
		name, _, found := strings.Cut(f, ":")
		if found && name == "PollScenarioId" {
			return true
		}
	}
	return false
}

// completeSearchCard opens a plain url-reward card and lets the visit count.
func (s *session) completeSearchCard(activity promotion) error {
	if err := s.openRewardsCard(activity.OfferID, activity.Name); err != nil {
		return err
	}
	s.sleep(time.Duration(utils.RandomRange(13, 17)) * time.Second)
	s.setPoints(s.pointsFromBing())
	s.closeActivityTab()
	return nil
}

// completePollCard answers a two-option poll with a random pick.
func (s *session) completePollCard(activity promotion) error {
	if err := s.openRewardsCard(activity.OfferID, activity.Name); err != nil {
		return err
	}
	s.sleep(8 * time.Second)
	s.dismissCookieBanner()
	s.dismissWallpaperPopup()

	if err := s.page.WaitClickable(s.ctx, "#btoption0", 15*time.Second); err != nil {
		return err
	}
	s.sleepExact(1 * time.Second)
	option := fmt.Sprintf("#btoption%d", utils.RandomRange(0, 1))
	if err := s.page.Click(s.ctx, option); err != nil {
		return err
	}
	s.sleep(time.Duration(utils.RandomRange(10, 15)) * time.Second)
	s.setPoints(s.pointsFromBing())
	s.closeActivityTab()
	return nil
}

// completeQuizCard runs a multi-question quiz, reading the answer key the
// page itself exposes.
func (s *session) completeQuizCard(activity promotion) error {
	if err := s.openRewardsCard(activity.OfferID, activity.Name); err != nil {
		return err
	}
	s.sleep(12 * time.Second)
	if !s.waitQuizLoads() {
		s.resetTabs()
		return nil
	}
	s.dismissCookieBanner()

	if err := s.page.WaitClickable(s.ctx, "#rqStartQuiz", 25*time.Second); err != nil {
		return err
	}
	s.sleepExact(2 * time.Second)
	if err := s.page.Click(s.ctx, "#rqStartQuiz"); err != nil {
		return err
	}
	s.sleepExact(3 * time.Second)

	questions, err := s.evalInt("_w.rewardsQuizRenderInfo.maxQuestions")
	if err != nil {
		return err
	}
	options, err := s.evalInt("_w.rewardsQuizRenderInfo.numberOfOptions")
	if err != nil {
		return err
	}

	for q := 0; q < questions; q++ {
		if done, err := s.answerQuizQuestion(options); err != nil || done {
			return err
		}
		s.setPoints(s.pointsFromBing())
	}
	s.sleep(6 * time.Second)
	s.closeActivityTab()
	return nil
}

// answerQuizQuestion answers one question. With 8 options several are correct
// (droppable tiles); with 4 a single data-option matches the answer key.
// Returns done=true when the question stream ended early.
func (s *session) answerQuizQuestion(options int) (bool, error) {
	if options == 8 {
		for i := 0; i < 8; i++ {
			sel := fmt.Sprintf("#rqAnswerOption%d", i)
			if !strings.EqualFold(s.attr(sel, "iscorrectoption"), "true") {
				continue
			}
			s.dismissWallpaperPopup()
			if err := s.page.WaitClickable(s.ctx, sel, 25*time.Second); err != nil {
				return false, err
			}
			if err := s.page.Click(s.ctx, sel); err != nil {
				return false, err
			}
			s.sleep(6 * time.Second)
			if !s.waitQuestionRefresh() {
				return true, nil
			}
		}
		s.sleep(6 * time.Second)
		return false, nil
	}

	correct, err := s.evalString("_w.rewardsQuizRenderInfo.correctAnswer")
	if err != nil {
		return false, err
	}
	for i := 0; i < 4; i++ {
		sel := fmt.Sprintf("#rqAnswerOption%d", i)
		if s.attr(sel, "data-option") != correct {
			continue
		}
		s.dismissWallpaperPopup()
		if err := s.page.WaitClickable(s.ctx, sel, 25*time.Second); err != nil {
			return false, err
		}
		if err := s.page.Click(s.ctx, sel); err != nil {
			return false, err
		}
		s.sleep(6 * time.Second)
		if !s.waitQuestionRefresh() {
			return true, nil
		}
		break
	}
	s.sleep(6 * time.Second)
	return false, nil
}

// completeVariableCard handles the 10-point cards that are either a one-shot
// quiz or an ABC multiple choice pane.
func (s *session) completeVariableCard(activity promotion) error {
	if err := s.openRewardsCard(activity.OfferID, activity.Name); err != nil {
		return err
	}
	s.sleep(10 * time.Second)
	s.dismissCookieBanner()

	startErr := s.page.Click(s.ctx, "#rqStartQuiz")
	if startErr == nil {
		startErr = s.page.WaitVisible(s.ctx, "#currentQuestionContainer", 3*time.Second)
	}
	if startErr != nil {
		// Not a quiz: try the ABC pane, else just let the visit count.
		if s.page.IsPresent(s.ctx, "#QuestionPane0") {
			if err := s.answerABCQuestions(); err != nil {
				return err
			}
		} else {
			s.sleep(time.Duration(utils.RandomRange(5, 9)) * time.Second)
		}
		s.closeActivityTab()
		return nil
	}

	s.sleepExact(3 * time.Second)
	correct, err := s.evalString("_w.rewardsQuizRenderInfo.correctAnswer")
	if err != nil {
		return err
	}
	if s.attr("#rqAnswerOption0", "data-option") == correct {
		err = s.page.Click(s.ctx, "#rqAnswerOption0")
	} else {
		err = s.page.Click(s.ctx, "#rqAnswerOption1")
	}
	if err != nil {
		return err
	}
	s.sleepExact(10 * time.Second)
	s.setPoints(s.pointsFromBing())
	s.closeActivityTab()
	return nil
}

// answerABCQuestions clicks a random option on each ABC question pane.
func (s *session) answerABCQuestions() error {
	questions, err := s.abcQuestionCount()
	if err != nil {
		return err
	}
	for q := 0; q < questions; q++ {
		s.dismissWallpaperPopup()
		expr := fmt.Sprintf(`(() => {
            const pane = document.querySelector("#QuestionPane%d");
            if (!pane) return false;
            const options = pane.querySelectorAll("div:first-child div:nth-child(2) a div");
            if (!options.length) return false;
            options[%d %% options.length].click();
            return true;
        })()`, q, utils.RandomRange(0, 2))
		var clicked bool
		if err := s.page.Eval(s.ctx, expr, &clicked); err != nil {
			return err
		}
		if !clicked {
			return fmt.Errorf("could not click option on question pane %d", q)
		}
		s.sleepExact(8 * time.Second)
		s.setPoints(s.pointsFromBing())
	}
	s.sleepExact(5 * time.Second)
	return nil
}

// abcQuestionCount parses the "1 of N" strip on the first question pane.
func (s *session) abcQuestionCount() (int, error) {
	raw, err := s.evalString(`(() => {
        const el = document.querySelector("#QuestionPane0 div:nth-child(2)");
        return el ? el.innerHTML : "";
    })()`)
	if err != nil {
		return 0, err
	}
	count := maxNumberIn(raw)
	if count == 0 {
		return 0, fmt.Errorf("could not parse question counter %q", raw)
	}
	return count, nil
}

func maxNumberIn(text string) int {
	best := 0
	for _, field := range strings.Fields(text) {
		n := 0
		ok := field != ""
		for _, r := range field {
			if r < '0' || r > '9' {
				ok = false
				break
			}
			n = n*10 + int(r-'0')
		}
		if ok && n > best {
			best = n
		}
	}
	return best
}

// completeThisOrThat answers the binary quiz whose correct side is derivable
// from the page's encode key.
func (s *session) completeThisOrThat(activity promotion, rounds int) error {
	if err := s.openRewardsCard(activity.OfferID, activity.Name); err != nil {
		return err
	}
	s.sleep(15 * time.Second)
	s.dismissCookieBanner()
	if !s.waitQuizLoads() {
		s.resetTabs()
		return nil
	}
	if err := s.page.Click(s.ctx, "#rqStartQuiz"); err != nil {
		return err
	}
	if err := s.page.WaitVisible(s.ctx, "#currentQuestionContainer", 10*time.Second); err != nil {
		return err
	}
	s.sleepExact(5 * time.Second)

	for i := 0; i < rounds; i++ {
		if err := s.answerThisOrThatRound(); err != nil {
			return err
		}
		s.setPoints(s.pointsFromBing())
	}
	s.sleepExact(5 * time.Second)
	s.closeActivityTab()
	return nil
}

func (s *session) answerThisOrThatRound() error {
	s.dismissWallpaperPopup()

	encodeKey, err := s.evalString("_G.IG")
	if err != nil {
		return err
	}
	if err := s.page.WaitVisible(s.ctx, "#rqAnswerOption0", 25*time.Second); err != nil {
		return err
	}

	correct, err := s.evalString("_w.rewardsQuizRenderInfo.correctAnswer")
	if err != nil {
		return err
	}
	if err := s.page.WaitClickable(s.ctx, "#rqAnswerOption0", 25*time.Second); err != nil {
		return err
	}

	for _, sel := range []string{"#rqAnswerOption0", "#rqAnswerOption1"} {
		title := s.attr(sel, "data-option")
		code, err := utils.AnswerCode(encodeKey, title)
		if err != nil {
			return err
		}
		if code == correct {
			if err := s.page.Click(s.ctx, sel); err != nil {
				return err
			}
			s.sleep(15 * time.Second)
			break
		}
	}
	return nil
}
