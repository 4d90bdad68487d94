/*
Package consensus derives one site's aggregate up/down status from the
measurements currently reported by the sites's present workers.

The engine never talks to the shared store itself — it is handed the
set of measurements the caller already retrieved, so it stays a pure,
easily tested function of its input. The boolean-majority-with-up-bias
rule is deliberately asymmetric: a lone worker's dissent is never
enough to call a site down, and it takes at least two dissenting
workers before the fleet as a whole agrees on "down". A fleet of zero
reporting workers yields no opinion at all, not a false "up".
*/
package consensus
