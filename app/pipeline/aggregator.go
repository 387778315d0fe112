package pipeline

import "github.com/lysyi3m/social-comb/app/post"

// Aggregate returns a's posts followed by b's, each in its original order.
// The result is never nil.
func Aggregate(a, b []post.Post) []post.Post {
	out := make([]post.Post, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
