// Package beacon implements the communal beacon: the quest state machine,
// the touch coordinator that serializes concurrent touches per user, and
// the trigger adapters that feed it.
//
// dialogue.go holds every piece of flavor text as fixed lookup tables.
package beacon

import (
	"fmt"

	"github.com/Lesamuen/Meridia2/internal/common"
)

// questDialogue is indexed by the resulting quest stage after a progress
// roll. Exactly 20 entries, indices 0..19.
var questDialogue = [20]string{
	"*A faint warmth stirs within the beacon. Someone is listening.*",
	"*MORTAL. YOU HAVE FOUND MY BEACON. IT WAS NOT MEANT FOR YOUR KIND.*",
	"*Yet you hold it still. Perhaps that is no accident.*",
	"*A new hand has claimed my light. Do not make me regret it.*",
	"*My temple lies in ruin, defiled by a necromancer's filth.*",
	"*Malkoran. Speak the name and feel my contempt.*",
	"*He twists the souls of the dead into mist and shadow.*",
	"*The dead belong to rest, not to his charnel legion.*",
	"*Carry my light through the darkened halls, mortal.*",
	"*The corrupted shrink from the beacon's glow. Press on.*",
	"*Each chamber you cleanse returns a measure of my radiance.*",
	"*You begin to understand. Light is not given. It is carried.*",
	"*Halfway, little one. The shadows grow thicker ahead.*",
	"*Malkoran feels your approach. Good. Let him dread it.*",
	"*My patience with the defiler wears to nothing.*",
	"*The inner sanctum awaits. Few mortals have seen it and lived.*",
	"*Your persistence honors me. Do not falter at the threshold.*",
	"*One barrier remains between my light and his corruption.*",
	"*Soon, mortal. Soon the light of certitude will be yours to wield.*",
	"*The final battle is upon you. Break him, and claim your reward.*",
}

// completeDialogue — the two lines a Dawnbreaker-bearer hears, chosen by
// coin flip.
var completeDialogue = [2]string{
	"*%s, may the light of certitude guide your efforts.*",
	"*%s, as you carry Dawnbreaker, so will my light touch the world.*",
}

const dawnbreakerDialogue = "**IT IS DONE. MALKORAN IS VANQUISHED.**\n" +
	"*The beacon flares, blinding, and reshapes itself in your grip: a blade of burning dawn.*\n" +
	"**%s, KNEEL NO LONGER. TAKE DAWNBREAKER, AND WITH IT MY BLESSING. LET ITS LIGHT SEAR THE UNDEAD FROM THIS WORLD.**\n" +
	"__+50 Electrum__"

const lostReprimand = "**THAT IS ENOUGH, %s. I AM--WAIT. WHERE DID YOU PUT THE BEACON?**\n" +
	"You search your inventory; it was right there just a moment ago!\n" +
	"***HOW DID YOU EVEN MANAGE TO LOSE MY BEACON?!*** **FIND IT, AND I MAY FORGIVE YOU YET.**"

const displeasedReprimand = "**THAT IS ENOUGH, %s. I AM DISHEARTENED BY YOUR MISTREATMENT OF MY BEACON.**"

const tiredMessage = "Unfortunately, %s, you are much too tired to continue your search for the beacon today."

const displeasedCooldownMessage = "*Meridia's voice does not grace you. " +
	"It seems that she is still a little peeved by your mistreatment of the beacon.*"

const searchIntro = "%s, you set out to search for the beacon once again today.\n%d"

const searchFound = "\nAmazingly, you finally find the beacon, right in the last place you look: " +
	"your back pocket! Don't misplace it next time!"

const searchFailed = "\nDespite all your efforts, wardrobes opened, chests unlocked, " +
	"and display cases upturned, you still haven't found the beacon!"

// touchAcknowledgment picks the generic touch line by lifetime touch count.
// The first two touches get the impersonal lines; 3..6 escalate with the
// user's mention; 7 onward appends the ordinal of the count.
func touchAcknowledgment(mention string, touches int64) string {
	switch touches {
	case 1:
		return "**A NEW HAND TOUCHES THE BEACON!**"
	case 2:
		return "**A NEW HAND TOUCHES THE BEACON.**"
	case 3:
		return fmt.Sprintf("**%s TOUCHES THE BEACON.**", mention)
	case 4:
		return fmt.Sprintf("**%s TOUCHES THE BEACON AGAIN.**", mention)
	case 5:
		return fmt.Sprintf("**%s TOUCHES THE BEACON. AGAIN.**", mention)
	case 6:
		return fmt.Sprintf("**%s TOUCHES THE BEACON. AGAIN...**", mention)
	default:
		return fmt.Sprintf("**%s TOUCHES THE BEACON. AGAIN. FOR THE %s TIME.**",
			mention, common.Ordinal(touches))
	}
}
