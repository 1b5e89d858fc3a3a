package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseClients holds the lazily requested Firebase services. Either field
// may be nil when the corresponding feature is disabled.
type FirebaseClients struct {
	App       *firebase.App
	Firestore *firestore.Client
	Auth      *auth.Client
}

// NewFirebaseClients initialises the Firebase app for projectID. When
// credentialsFile is empty the application default credentials are used.
func NewFirebaseClients(ctx context.Context, projectID, credentialsFile string, withFirestore, withAuth bool) (*FirebaseClients, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}

	clients := &FirebaseClients{App: app}

	if withFirestore {
		clients.Firestore, err = app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
	}

	if withAuth {
		clients.Auth, err = app.Auth(ctx)
		if err != nil {
			clients.Close()
			return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
		}
	}

	return clients, nil
}

func (c *FirebaseClients) Close() {
	if c.Firestore != nil {
		c.Firestore.Close()
	}
}
