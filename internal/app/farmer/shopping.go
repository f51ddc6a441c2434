package farmer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/pkg/utils"
)

const shoppingURL = "https://www.msn.com/en-us/shopping"

// Composed-tree paths into the shopping page. The feed holds the cards; the
// sign-in control lives under the user preferences header.
var (
	shoppingFeedPath = []shadowStep{
		tag("shopping-page-base"), shadow(),
		query("shopping-homepage"), shadow(),
		child(0), query("msft-feed-layout"), shadow(),
	}

	shoppingSignInPath = []shadowStep{
		tag("shopping-page-base"), shadow(),
		child(0), child(1), child(0), shadow(),
		child(0), shadow(),
		child(0), class("user-pref-container"),
		child(0), child(0), shadow(),
		child(0), class("me-control"),
	}
)

// gamingCardEval resolves the feed and binds the card whose gamestate matches
// wantState before running body against it.
func gamingCardEval(wantState, body string) string {
	inner := fmt.Sprintf(`
let card = null;
for (const c of el.children) {
    if (%s) { card = c; break; }
}
if (!card) return null;
%s`, wantState, body)
	return shadowEval(shoppingFeedPath, inner)
}

const anyGameState = `c.getAttribute("gamestate") === "active" || c.getAttribute("gamestate") === "idle"`
const activeGameState = `c.getAttribute("gamestate") === "active"`

// completeShoppingGame plays the MSN shopping quiz game. The flag is set no
// matter what: the game frontend is flaky and a broken day should not wedge
// the account.
func (s *session) completeShoppingGame() error {
	err := s.playShoppingGame()
	switch {
	case errors.Is(err, errGamingCardNotFound):
		s.update("", "Gaming card not found")
	case errors.Is(err, errGamingCardNotActive):
		s.update("", "Already completed")
		s.sleep(10 * time.Second)
	case err != nil:
		s.saveError(err)
		s.update("", "Failed to complete")
	default:
		s.update("", "Completed")
	}

	if navErr := s.goTo(baseURL); navErr != nil {
		return navErr
	}
	s.acc.Log.ShoppingGame = true
	if err := s.f.persist(s.acc); err != nil {
		return err
	}
	s.update("-", "-")

	_ = s.page.WaitVisible(s.ctx, "#app-host", 30*time.Second)
	if points, err := s.accountPoints(); err == nil {
		s.acc.PointsCounter = points
		s.setPoints(points)
	}
	return nil
}

func (s *session) playShoppingGame() error {
	var signInText string
	for tries := 1; tries <= 4; tries++ {
		s.update(fmt.Sprintf("MSN shopping game - try (%d)", tries), "Waiting for elements")
		if err := s.goTo(shoppingURL); err != nil {
			return err
		}
		if err := s.page.WaitVisible(s.ctx, "shopping-page-base", 60*time.Second); err != nil {
			continue
		}
		s.sleepExact(15 * time.Second)

		s.update("", "Waiting for sign in state")
		text, err := s.evalString(shadowEval(shoppingSignInPath, `return el.textContent || "";`))
		if err == nil && text != "" {
			signInText = text
			break
		}
		if tries == 4 {
			return fmt.Errorf("sign in button did not show up")
		}
	}

	s.update("MSN shopping game", "")
	s.sleep(5 * time.Second)

	if strings.Contains(signInText, "Sign in") {
		if err := s.shoppingSignIn(); err != nil {
			return err
		}
	}

	s.update("", "Locating gaming card")
	state, err := s.locateGamingCard()
	if err != nil {
		return err
	}
	if state == "idle" {
		return errGamingCardNotActive
	}

	s.update("", "Gaming card found")
	s.sleep(time.Duration(utils.RandomRange(7, 10)) * time.Second)

	for question := 0; question < 10; question++ {
		s.update("", fmt.Sprintf("Answering questions (%d/10)", question+1))

		// The card exposes its own correct answer index.
		answered, err := s.evalString(gamingCardEval(activeGameState, `
const index = parseInt(card.getAttribute("_correctAnswerIndex"), 10);
const options = card.shadowRoot.children[1].children[1].children;
if (!options || !options[index]) return "no-options";
options[index].click();
return "clicked";`))
		if err != nil || answered != "clicked" {
			break
		}
		s.sleepExact(1 * time.Second)

		selected, err := s.evalString(gamingCardEval(activeGameState, `
const index = parseInt(card.getAttribute("_correctAnswerIndex"), 10);
const options = card.shadowRoot.children[1].children[1].children;
const button = options[index].getElementsByClassName("shopping-select-overlay-button")[0];
if (!button) return "no-button";
button.click();
return "clicked";`))
		if err != nil || selected != "clicked" {
			break
		}

		s.sleepExact(time.Duration(utils.RandomRange(4, 6)) * time.Second)
		again, err := s.evalString(gamingCardEval(activeGameState, `
const header = card.shadowRoot.children[1].children[0];
const button = header.getElementsByTagName("button")[0];
if (!button) return "no-button";
button.click();
return "clicked";`))
		if err != nil || again != "clicked" {
			break
		}
		s.sleepExact(time.Duration(utils.RandomRange(5, 7)) * time.Second)
	}
	return nil
}

// locateGamingCard hunts for the card, scrolling the feed a few screens.
func (s *session) locateGamingCard() (string, error) {
	findCard := gamingCardEval(anyGameState, `
card.scrollIntoView();
return card.getAttribute("gamestate");`)

	state, _ := s.evalString(findCard)
	for scrolls := 1; state == "" && scrolls <= 5; scrolls++ {
		s.update("", fmt.Sprintf("Locating gaming card - scrolling (%d/5)", scrolls))
		_ = s.page.Eval(s.ctx, "window.scrollBy(0, 300);", nil)
		s.sleepExact(10 * time.Second)
		state, _ = s.evalString(findCard)
	}
	if state == "" {
		return "", errGamingCardNotFound
	}
	return state, nil
}

func (s *session) shoppingSignIn() error {
	s.update("", "Signing in")
	clicked, err := s.evalString(shadowEval(shoppingSignInPath, `el.click(); return "clicked";`))
	if err != nil || clicked != "clicked" {
		return fmt.Errorf("could not click shopping sign in")
	}
	s.sleepExact(5 * time.Second)

	if err := s.page.WaitVisible(s.ctx, "#newSessionLink", 10*time.Second); err != nil {
		return err
	}
	if err := s.page.Click(s.ctx, "#newSessionLink"); err != nil {
		return err
	}
	s.answerSecurityInfoUpdate()

	s.update("", "Waiting for elements")
	if err := s.page.WaitVisible(s.ctx, "shopping-page-base", 60*time.Second); err != nil {
		return err
	}
	s.update("", "Checking signed in state")
	if _, err := s.evalString(shadowEval(shoppingSignInPath, `return el.textContent || "";`)); err != nil {
		return err
	}
	s.sleep(10 * time.Second)
	return nil
}
