package game

import "math/rand"

var deathComments = []string{
	"That's not very cloud-native of you...",
	"Should've used a horizontal pod autoscaler!",
	"Error 418: I'm a teapot... wait, wrong protocol",
	"Your snake has been reaped by the kubelet",
	"Hope you had proper monitoring in place!",
	"That collision was definitely not idempotent",
	"No rolling update could save you now",
	"Your snake failed the readiness probe",
	"Looks like you hit the resource limit!",
	"Time to file a postmortem incident report",
	"Your SLO just took a nosedive",
	"Should've implemented circuit breakers!",
	"That's a CrashLoopBackOff if I ever saw one",
	"Your snake needs more replicas!",
	"Distributed systems are hard, aren't they?",
}

// DeathComments returns every line a dying player may receive.
func DeathComments() []string {
	out := make([]string, len(deathComments))
	copy(out, deathComments)
	return out
}

func pickComment(rng *rand.Rand) string {
	return deathComments[rng.Intn(len(deathComments))]
}
