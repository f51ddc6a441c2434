package farmer

import (
	"fmt"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/pkg/utils"
)

// bingSearches burns through the remaining searches for the current surface.
// Progress is judged by the live points counter; when a search stops earning,
// related terms are tried before giving up early.
func (s *session) bingSearches() error {
	var total int
	if s.mobile {
		s.update("Mobile Bing Searches", "")
		total = s.acc.MobileRemainingSearches
	} else {
		s.update("PC Bing Searches", "")
		total = s.acc.PCRemainingSearches
	}
	s.update("", fmt.Sprintf("0/%d", total))

	terms, err := s.f.words.Take(total)
	if err != nil {
		return err
	}

	for i, word := range terms {
		s.update("", fmt.Sprintf("%d/%d", i+1, total))

		before := s.acc.PointsCounter
		points := s.searchWord(word)
		s.setPoints(points)

		if points <= before {
			// The counter stalled; related phrasings sometimes still earn.
			rescued := false
			for _, term := range s.f.words.RelatedTerms(word) {
				points = s.searchWord(term)
				s.setPoints(points)
				if points > before {
					rescued = true
					break
				}
			}
			if !rescued {
				break
			}
		}
	}
	return nil
}

// searchWord runs one query and returns the resulting counter reading.
func (s *session) searchWord(word string) int {
	// Reuse the search bar on desktop; mobile needs a fresh page.
	cleared := false
	if !s.mobile {
		err := s.page.Eval(s.ctx, `(() => {
            const bar = document.querySelector("#sb_form_q");
            if (!bar) return false;
            bar.value = "";
            return true;
        })()`, &cleared)
		if err == nil && cleared {
			s.sleepExact(1 * time.Second)
		}
	}
	if !cleared {
		if err := s.goTo(bingURL); err != nil {
			return s.acc.PointsCounter
		}
	}
	s.sleepExact(2 * time.Second)

	if s.f.cfg.Speed != "Normal" {
		if err := s.page.SendKeys(s.ctx, "#sb_form_q", word); err != nil {
			return s.acc.PointsCounter
		}
		s.sleep(1 * time.Second)
	} else {
		// Typing rhythm matters on Normal speed.
		for _, char := range word {
			if err := s.page.SendKeys(s.ctx, "#sb_form_q", string(char)); err != nil {
				return s.acc.PointsCounter
			}
			s.sleepExact(time.Duration(utils.RandomRange(200, 400)) * time.Millisecond)
		}
	}
	if err := s.page.PressEnter(s.ctx, "#sb_form_q"); err != nil {
		return s.acc.PointsCounter
	}
	s.sleep(time.Duration(utils.RandomRange(12, 24)) * time.Second)

	return s.pointsFromBing()
}
