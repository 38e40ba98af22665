package experience

// Draft and published snapshots are versioned independently. Every draft
// mutation increments the draft version by one; publishing copies the
// draft payload and stamps the published version to the draft version at
// that moment.

// HasUnpublishedChanges reports whether the draft differs from what guests
// see. A nil published version means the document was never published.
func HasUnpublishedChanges(draftVersion int64, publishedVersion *int64) bool {
	if publishedVersion == nil {
		return true
	}
	return draftVersion > *publishedVersion
}
