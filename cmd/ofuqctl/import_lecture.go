package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ofuq-backend/internal/lectureimport"
	"ofuq-backend/internal/repository"
	"ofuq-backend/internal/services"
)

var importLectureCmd = &cobra.Command{
	Use:   "import-lecture <file>",
	Short: "Validate a lecture file and optionally import it",
	Long: "Validates a lecture JSON file against the import schema. With --workspace, " +
		"--subject and --owner the lecture is also stored.",
	Args: cobra.ExactArgs(1),
	RunE: runImportLecture,
}

func init() {
	importLectureCmd.Flags().String("workspace", "", "Workspace ID to import into")
	importLectureCmd.Flags().String("subject", "", "Subject ID to import into")
	importLectureCmd.Flags().String("owner", "", "User ID of the workspace owner")
}

func runImportLecture(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read lecture file: %w", err)
	}

	validator, err := lectureimport.NewValidator()
	if err != nil {
		return err
	}
	lec, err := validator.Validate(raw)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	workspaceFlag, _ := cmd.Flags().GetString("workspace")
	subjectFlag, _ := cmd.Flags().GetString("subject")
	owner, _ := cmd.Flags().GetString("owner")
	if workspaceFlag == "" && subjectFlag == "" {
		fmt.Fprintf(out, "✓ %q is valid (%d questions)\n", lec.Title, len(lec.Quiz))
		return nil
	}
	if workspaceFlag == "" || subjectFlag == "" || owner == "" {
		return errors.New("--workspace, --subject and --owner must be given together")
	}

	workspaceID, err := uuid.Parse(workspaceFlag)
	if err != nil {
		return fmt.Errorf("invalid --workspace: %w", err)
	}
	subjectID, err := uuid.Parse(subjectFlag)
	if err != nil {
		return fmt.Errorf("invalid --subject: %w", err)
	}

	pool, err := openPool()
	if err != nil {
		return err
	}
	defer pool.Close()

	workspaces := services.NewWorkspaceService(repository.NewWorkspaceRepo(pool), repository.NewSubjectRepo(pool), "")
	lectures := services.NewLectureService(workspaces, repository.NewLectureRepo(pool), validator)

	stored, err := lectures.Import(cmd.Context(), owner, workspaceID, subjectID, raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Imported %q as %s\n", stored.Title, stored.ID)
	return nil
}
