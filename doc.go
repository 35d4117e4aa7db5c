// Package stratus is a client-side manager for processing sessions on a
// remote pipeline-execution platform.
//
// A Service value represents one authenticated platform connection. It is
// created with an API key reference (the key itself, a key file, an
// environment variable name or an encrypted secret URL) and verifies the
// credentials by listing the pipelines the account can run:
//
//	svc, _ := stratus.New(ctx, "VIP_API_KEY",
//	    stratus.WithEndpoint("https://vip.creatis.insa-lyon.fr/rest"))
//	pipelines, _ := svc.FindPipelines("freesurfer")
//
// Sessions group executions of one pipeline over one dataset and checkpoint
// their state after every step, so an interrupted process resumes by
// restoring from the backup record:
//
//	sess, _ := svc.NewSession(
//	    session.WithName("study-7"),
//	    session.WithPipeline(pipelines[0].Identifier),
//	    session.WithLocalInputDir("./dataset"),
//	    session.WithLocalOutputDir("./results"),
//	    session.WithInputs(inputs))
//	_, _ = sess.Restore(ctx)
//	report, err := sess.Run(ctx, 1, 0)
//
// See the session sub-package for the individual lifecycle operations.
package stratus
