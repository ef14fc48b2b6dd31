package growth

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository stores users under users/{id} with activities, growth_metrics
// and badges as subcollections.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) userDoc(userID string) *firestore.DocumentRef {
	return r.client.Collection("users").Doc(userID)
}

func (r *firestoreRepository) GetUser(ctx context.Context, userID string) (*User, error) {
	doc, err := r.userDoc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return DefaultUser(userID), nil
	}
	if err != nil {
		return nil, err
	}

	var user User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	user.ID = userID
	return &user, nil
}

func (r *firestoreRepository) SaveUser(ctx context.Context, user User) error {
	ref := r.userDoc(user.ID)
	now := time.Now().UTC()

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		data := map[string]any{
			"nickname":             user.Nickname,
			"category_preferences": user.CategoryPreferences,
			"timezone":             user.Timezone,
			"updated_at":           now,
		}
		if _, err := tx.Get(ref); status.Code(err) == codes.NotFound {
			data["created_at"] = now
		} else if err != nil {
			return err
		}
		return tx.Set(ref, data, firestore.MergeAll)
	})
}

func (r *firestoreRepository) CreateActivity(ctx context.Context, activity Activity) error {
	if err := validateActivity(activity); err != nil {
		return err
	}
	if activity.ID == "" {
		return fmt.Errorf("%w: activity id is required", ErrInvalidRecord)
	}
	_, err := r.userDoc(activity.UserID).Collection("activities").Doc(activity.ID).Create(ctx, activity)
	return err
}

func (r *firestoreRepository) ListActivities(ctx context.Context, userID string, since time.Time) ([]Activity, error) {
	iter := r.userDoc(userID).Collection("activities").
		Where("completed_at", ">=", since).
		OrderBy("completed_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var out []Activity
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		activity, err := decodeActivity(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, activity)
	}
	return out, nil
}

func (r *firestoreRepository) ListActivitiesPage(ctx context.Context, userID string, pageSize int, pageToken string) (ActivityPage, error) {
	anchor, anchorID, hasAnchor, err := decodePageToken(pageToken)
	if err != nil {
		return ActivityPage{}, err
	}
	size := normalizePageSize(pageSize)

	query := r.userDoc(userID).Collection("activities").
		OrderBy("completed_at", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)
	if hasAnchor {
		query = query.StartAfter(anchor, anchorID)
	}
	iter := query.Limit(size + 1).Documents(ctx)
	defer iter.Stop()

	page := ActivityPage{Items: []Activity{}}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return ActivityPage{}, err
		}
		if len(page.Items) == size {
			last := page.Items[len(page.Items)-1]
			page.NextPageToken = encodePageToken(last.CompletedAt, last.ID)
			break
		}
		activity, err := decodeActivity(doc)
		if err != nil {
			return ActivityPage{}, err
		}
		page.Items = append(page.Items, activity)
	}
	return page, nil
}

func decodeActivity(doc *firestore.DocumentSnapshot) (Activity, error) {
	var activity Activity
	if err := doc.DataTo(&activity); err != nil {
		return Activity{}, fmt.Errorf("decode activity %s: %w", doc.Ref.ID, err)
	}
	activity.ID = doc.Ref.ID
	return activity, nil
}

func (r *firestoreRepository) UpsertGrowthMetric(ctx context.Context, metric GrowthMetric) error {
	if err := validateMetric(metric); err != nil {
		return err
	}
	_, err := r.userDoc(metric.UserID).Collection("growth_metrics").Doc(metric.Key()).Set(ctx, metric)
	return err
}

func (r *firestoreRepository) ListGrowthMetrics(ctx context.Context, userID string, sinceDate string) ([]GrowthMetric, error) {
	iter := r.userDoc(userID).Collection("growth_metrics").
		Where("date", ">=", sinceDate).
		OrderBy("date", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []GrowthMetric
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var metric GrowthMetric
		if err := doc.DataTo(&metric); err != nil {
			return nil, fmt.Errorf("decode growth metric %s: %w", doc.Ref.ID, err)
		}
		out = append(out, metric)
	}
	return out, nil
}

func (r *firestoreRepository) ListBadges(ctx context.Context, userID string) ([]BadgeEarned, error) {
	iter := r.userDoc(userID).Collection("badges").OrderBy("earned_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []BadgeEarned
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var badge BadgeEarned
		if err := doc.DataTo(&badge); err != nil {
			return nil, fmt.Errorf("decode badge %s: %w", doc.Ref.ID, err)
		}
		badge.ID = doc.Ref.ID
		out = append(out, badge)
	}
	return out, nil
}

func (r *firestoreRepository) CreateBadge(ctx context.Context, badge BadgeEarned) (bool, error) {
	if err := validateBadge(badge); err != nil {
		return false, err
	}
	// the document id is the (type, level) key so a second award collides
	_, err := r.userDoc(badge.UserID).Collection("badges").Doc(badge.Key()).Create(ctx, badge)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *firestoreRepository) Ping(ctx context.Context) error {
	_, err := r.client.Collection("health").Doc("ping").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}
