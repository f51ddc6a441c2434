package farmer

import (
	"fmt"
	"time"
)

// completeMorePromotions runs the "more activities" section, then the
// promotional item banner when one is live.
func (s *session) completeMorePromotions() error {
	s.update("More activities", "-")
	d, err := s.dashboardData()
	if err != nil {
		return err
	}

	for _, promo := range d.MorePromotions {
		if err := s.runMorePromotion(promo); err != nil {
			s.log.JustLog(fmt.Sprintf("promotion %q failed: %v", promo.Name, err))
			s.saveError(err)
			s.resetTabs()
		}
	}

	s.completePromotionalItem()
	s.update("-", "-")

	s.acc.Log.MorePromotions = true
	return s.f.persist(s.acc)
}

func (s *session) runMorePromotion(promo promotion) error {
	if promo.Complete || promo.PointProgressMax == 0 {
		return nil
	}
	switch promo.PromotionType {
	case "urlreward":
		s.update("", "Search card")
		return s.completeSearchCard(promo)
	case "quiz":
		switch promo.PointProgressMax {
		case 10:
			s.update("", "ABC card")
			return s.completeMoreABC(promo)
		case 30, 40:
			s.update("", "Quiz card")
			return s.completeMoreQuiz(promo)
		case 50:
			s.update("", "This or that card")
			return s.completeMoreThisOrThat(promo)
		}
	default:
		// Untyped big-point promos behave like searches.
		if promo.PointProgressMax == 100 || promo.PointProgressMax == 200 {
			s.update("", "Search card")
			return s.completeSearchCard(promo)
		}
	}
	return nil
}

// completeMoreQuiz resumes a quiz mid-way when a previous run got interrupted:
// the current question number offsets how many remain.
func (s *session) completeMoreQuiz(promo promotion) error {
	if err := s.openRewardsCard(promo.OfferID, promo.Name); err != nil {
		return err
	}
	s.sleep(8 * time.Second)
	if !s.waitQuizLoads() {
		s.resetTabs()
		return nil
	}

	current, err := s.evalInt("_w.rewardsQuizRenderInfo.currentQuestionNumber")
	if err != nil {
		return err
	}
	if current == 1 && s.page.IsPresent(s.ctx, "#rqStartQuiz") {
		if err := s.page.WaitClickable(s.ctx, "#rqStartQuiz", 25*time.Second); err != nil {
			return err
		}
		s.sleepExact(2 * time.Second)
		if err := s.page.Click(s.ctx, "#rqStartQuiz"); err != nil {
			return err
		}
	}
	if err := s.page.WaitVisible(s.ctx, "#currentQuestionContainer", 25*time.Second); err != nil {
		return err
	}
	s.sleepExact(3 * time.Second)

	total, err := s.evalInt("_w.rewardsQuizRenderInfo.maxQuestions")
	if err != nil {
		return err
	}
	options, err := s.evalInt("_w.rewardsQuizRenderInfo.numberOfOptions")
	if err != nil {
		return err
	}

	for q := 0; q < total-current+1; q++ {
		if done, err := s.answerQuizQuestion(options); err != nil || done {
			return err
		}
		s.setPoints(s.pointsFromBing())
	}
	s.sleep(6 * time.Second)
	s.closeActivityTab()
	return nil
}

func (s *session) completeMoreABC(promo promotion) error {
	if err := s.openRewardsCard(promo.OfferID, promo.Name); err != nil {
		return err
	}
	s.sleep(8 * time.Second)
	if err := s.page.WaitVisible(s.ctx, "#QuestionPane0", 25*time.Second); err != nil {
		return err
	}
	if err := s.answerABCQuestions(); err != nil {
		return err
	}
	s.setPoints(s.pointsFromBing())
	s.closeActivityTab()
	return nil
}

// completeMoreThisOrThat is the resumable variant: the game is always ten
// rounds, minus what an earlier run already answered.
func (s *session) completeMoreThisOrThat(promo promotion) error {
	if err := s.openRewardsCard(promo.OfferID, promo.Name); err != nil {
		return err
	}
	s.sleep(8 * time.Second)
	if !s.waitQuizLoads() {
		s.resetTabs()
		return nil
	}

	current, err := s.evalInt("_w.rewardsQuizRenderInfo.currentQuestionNumber")
	if err != nil {
		return err
	}
	if current == 1 && s.page.IsPresent(s.ctx, "#rqStartQuiz") {
		if err := s.page.WaitClickable(s.ctx, "#rqStartQuiz", 25*time.Second); err != nil {
			return err
		}
		if err := s.page.Click(s.ctx, "#rqStartQuiz"); err != nil {
			return err
		}
	}
	if err := s.page.WaitVisible(s.ctx, "#currentQuestionContainer", 10*time.Second); err != nil {
		return err
	}
	s.sleepExact(3 * time.Second)

	for i := 0; i < 10-current+1; i++ {
		if err := s.answerThisOrThatRound(); err != nil {
			return err
		}
		s.setPoints(s.pointsFromBing())
	}
	s.sleepExact(5 * time.Second)
	s.closeActivityTab()
	return nil
}

// completePromotionalItem handles the banner above the dashboard cards when
// it is a simple visit-to-earn offer pointing back at the portal. Best effort.
func (s *session) completePromotionalItem() {
	s.update("", "Promotional items")
	d, err := s.dashboardData()
	if err != nil || d.PromotionalItem == nil {
		return
	}
	item := d.PromotionalItem
	if (item.PointProgressMax != 100 && item.PointProgressMax != 200) ||
		item.Complete || item.DestinationURL != baseURL {
		return
	}

	var clicked bool
	expr := `(() => {
        const link = document.querySelector("#promo-item section a");
        if (!link) return false;
        link.click();
        return true;
    })()`
	if err := s.page.Eval(s.ctx, expr, &clicked); err != nil || !clicked {
		return
	}
	s.sleepExact(1 * time.Second)
	if err := s.page.SwitchToNewTab(s.ctx); err != nil {
		return
	}
	s.sleepExact(8 * time.Second)
	s.setPoints(s.pointsFromBing())
	s.closeActivityTab()
}
