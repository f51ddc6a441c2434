package farmer

import (
	"fmt"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/pkg/utils"
)

// completePunchCards works through every open punch card on the dashboard.
// Failures are contained per card.
func (s *session) completePunchCards() error {
	d, err := s.dashboardData()
	if err != nil {
		return err
	}
	s.update("Punch cards", "-")

	for _, card := range d.PunchCards {
		parent := card.ParentPromotion
		if parent == nil || card.ChildPromotions == nil ||
			parent.Complete || parent.PointProgressMax == 0 {
			continue
		}
		destination := parent.Attributes["destination"]
		if destination == "" {
			continue
		}
		if err := s.completePunchCard(destination, card.ChildPromotions); err != nil {
			s.log.JustLog(fmt.Sprintf("punch card failed: %v", err))
			s.saveError(err)
			s.resetTabs()
		}
	}

	s.sleepExact(2 * time.Second)
	if err := s.goTo(baseURL); err != nil {
		return err
	}
	s.sleepExact(2 * time.Second)

	s.acc.Log.PunchCards = true
	return s.f.persist(s.acc)
}

// completePunchCard advances one card's child chain. Quiz children end the
// visit with a refresh so the chain state is re-read next time.
func (s *session) completePunchCard(url string, children []promotion) error {
	if err := s.goTo(url); err != nil {
		return err
	}
	for _, child := range children {
		if child.Complete {
			continue
		}
		switch {
		case child.PromotionType == "urlreward":
			if err := s.punchCardVisit(); err != nil {
				return err
			}
		case child.PromotionType == "quiz" && child.PointProgressMax >= 50:
			if err := s.punchCardQuiz(); err != nil {
				return err
			}
			_ = s.page.Reload(s.ctx)
			return nil
		case child.PromotionType == "quiz" && child.PointProgressMax < 50:
			if err := s.punchCardABC(); err != nil {
				return err
			}
			_ = s.page.Reload(s.ctx)
			return nil
		}
	}
	return nil
}

// punchCardVisit opens the offer link and lets the visit count.
func (s *session) punchCardVisit() error {
	if err := s.clickOfferCTA(); err != nil {
		return err
	}
	s.sleepExact(time.Duration(utils.RandomRange(13, 17)) * time.Second)
	s.closeActivityTab()
	return nil
}

// punchCardQuiz resumes a large quiz mid-way: the answered count offsets how
// many questions remain.
func (s *session) punchCardQuiz() error {
	if err := s.clickOfferCTA(); err != nil {
		return err
	}
	s.sleep(15 * time.Second)

	if s.page.IsPresent(s.ctx, "#rqStartQuiz") {
		if err := s.page.WaitClickable(s.ctx, "#rqStartQuiz", 10*time.Second); err == nil {
			_ = s.page.Click(s.ctx, "#rqStartQuiz")
		}
	}
	s.sleep(6 * time.Second)
	if err := s.page.WaitVisible(s.ctx, "#currentQuestionContainer", 10*time.Second); err != nil {
		return err
	}

	total, err := s.evalInt("_w.rewardsQuizRenderInfo.maxQuestions")
	if err != nil {
		return err
	}
	answered, err := s.evalInt("_w.rewardsQuizRenderInfo.CorrectlyAnsweredQuestionCount")
	if err != nil {
		return err
	}

	for q := 0; q < total-answered; q++ {
		answer, err := s.evalString("_w.rewardsQuizRenderInfo.correctAnswer")
		if err != nil {
			return err
		}
		sel := fmt.Sprintf(`input[value=%q]`, answer)
		if err := s.page.WaitClickable(s.ctx, sel, 10*time.Second); err != nil {
			return err
		}
		if err := s.page.Click(s.ctx, sel); err != nil {
			return err
		}
		s.sleep(15 * time.Second)
	}
	s.sleepExact(5 * time.Second)
	s.closeActivityTab()
	return nil
}

// punchCardABC answers the multiple choice panes behind a small quiz child.
func (s *session) punchCardABC() error {
	if err := s.clickOfferCTA(); err != nil {
		return err
	}
	s.sleep(8 * time.Second)
	if err := s.page.WaitVisible(s.ctx, "#QuestionPane0", 15*time.Second); err != nil {
		return err
	}
	if err := s.answerABCQuestions(); err != nil {
		return err
	}
	s.closeActivityTab()
	return nil
}

// clickOfferCTA follows the punch card's call-to-action into its new tab.
func (s *session) clickOfferCTA() error {
	var clicked bool
	expr := `(() => {
        const ctas = document.getElementsByClassName("offer-cta");
        if (!ctas.length) return false;
        ctas[0].click();
        return true;
    })()`
	if err := s.page.Eval(s.ctx, expr, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("could not locate offer call-to-action")
	}
	s.sleepExact(1 * time.Second)
	return s.page.SwitchToNewTab(s.ctx)
}
