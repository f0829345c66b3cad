package flows

import (
	"github.com/verdantlabs/sprout/navigator/internal/domain/coordinator"
	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
)

// The ensure helpers implement chain construction: find a live child that
// already covers the target and reuse it, otherwise spawn and start a new
// one with the relevant slice of the originating event. Reuse keeps the
// live part of a chain intact when a deep link overlaps it.

func (s *Set) ensureFeed(container *coordinator.Coordinator) *coordinator.Coordinator {
	for _, ch := range container.Children() {
		if _, ok := ch.Flow().(*feedFlow); ok && ch.Alive() {
			ch.SetActive(ch)
			return ch
		}
	}
	feed := container.Spawn(&feedFlow{set: s})
	feed.Start(event.OpenFeed{})
	return feed
}

func (s *Set) ensurePost(feed *coordinator.Coordinator, postID string, src event.Event) *coordinator.Coordinator {
	for _, ch := range feed.Children() {
		if pf, ok := ch.Flow().(*postFlow); ok && ch.Alive() && pf.postID == postID {
			ch.SetActive(ch)
			return ch
		}
	}
	post := feed.Spawn(&postFlow{set: s, postID: postID})
	post.Start(src)
	return post
}

func (s *Set) ensureThread(post *coordinator.Coordinator, ev event.OpenComment) *coordinator.Coordinator {
	for _, ch := range post.Children() {
		if tf, ok := ch.Flow().(*threadFlow); ok && ch.Alive() && tf.postID == ev.PostID {
			tf.highlight = ev.CommentID
			ch.SetActive(ch)
			return ch
		}
	}
	thread := post.Spawn(&threadFlow{set: s, postID: ev.PostID, highlight: ev.CommentID})
	thread.Start(ev)
	return thread
}

func (s *Set) ensureProfile(container *coordinator.Coordinator, userID string, src event.Event) *coordinator.Coordinator {
	for _, ch := range container.Children() {
		if pf, ok := ch.Flow().(*profileFlow); ok && ch.Alive() && pf.userID == userID {
			ch.SetActive(ch)
			return ch
		}
	}
	profile := container.SpawnModal(&profileFlow{set: s, userID: userID})
	profile.Start(src)
	return profile
}

func (s *Set) ensureCard(container *coordinator.Coordinator, cardID string, src event.Event) *coordinator.Coordinator {
	for _, ch := range container.Children() {
		if cf, ok := ch.Flow().(*plantCardFlow); ok && ch.Alive() && cf.cardID == cardID {
			ch.SetActive(ch)
			return ch
		}
	}
	card := container.SpawnModal(&plantCardFlow{set: s, cardID: cardID})
	card.Start(src)
	return card
}
